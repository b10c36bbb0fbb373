// Package store persists OHLCV series as CSV files, one per
// (symbol, interval) pair.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"MarketCache/internal/model"
)

// Config locates the cache on disk. Namespace separates series written by
// different upstream adapters so equal symbols never collide.
type Config struct {
	RootDir   string
	Namespace string
}

// Store reads and writes cached series under Config's directory.
// Freshness is tracked by file modification time.
type Store struct {
	dir string
	log zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

var header = []string{"Date", "Open", "High", "Low", "Close", "Volume"}

// Accepted timestamp layouts, most specific first. Naive timestamps are
// read as UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// New creates the cache directory if needed and returns a Store.
func New(cfg Config) (*Store, error) {
	if cfg.RootDir == "" {
		return nil, fmt.Errorf("store: root dir is required")
	}
	dir := filepath.Join(cfg.RootDir, cfg.Namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{
		dir: dir,
		log: log.With().Str("component", "store").Logger(),
		now: time.Now,
	}, nil
}

// Path returns the on-disk location of one series file.
func (s *Store) Path(symbol, interval string) string {
	name := fmt.Sprintf("%s_%s.csv", model.NormalizeSymbol(symbol), interval)
	return filepath.Join(s.dir, name)
}

// Exists reports whether a cached series is present, fresh or not.
func (s *Store) Exists(symbol, interval string) bool {
	_, err := os.Stat(s.Path(symbol, interval))
	return err == nil
}

// Age returns how long ago the series was last written.
func (s *Store) Age(symbol, interval string) (time.Duration, error) {
	fi, err := os.Stat(s.Path(symbol, interval))
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s", model.ErrNotFound, symbol, interval)
	}
	return s.now().Sub(fi.ModTime()), nil
}

// IsFresh reports whether a cached series exists and was written less than
// maxAge ago.
func (s *Store) IsFresh(symbol, interval string, maxAge time.Duration) bool {
	age, err := s.Age(symbol, interval)
	if err != nil {
		return false
	}
	return age < maxAge
}

// Load reads the cached series for symbol+interval. It returns ErrNotFound
// when no file exists and ErrCorruptData when the file cannot be parsed.
// Individually malformed rows are logged and skipped.
func (s *Store) Load(symbol, interval string) (*model.CachedSeries, error) {
	path := s.Path(symbol, interval)
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s", model.ErrNotFound, symbol, interval)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrCorruptData, path, err)
	}
	if len(records) == 0 || len(records[0]) < 6 {
		return nil, fmt.Errorf("%w: %s: missing header", model.ErrCorruptData, path)
	}
	if first := records[0][0]; first != "Date" && first != "Timestamp" {
		return nil, fmt.Errorf("%w: %s: unexpected header %q", model.ErrCorruptData, path, first)
	}

	rows := make([]model.OHLCV, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parseRow(rec)
		if err != nil {
			s.log.Warn().Str("file", path).Int("line", i+2).Err(err).
				Msg("skipping unparseable cached row")
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 && len(records) > 1 {
		return nil, fmt.Errorf("%w: %s: no parseable rows", model.ErrCorruptData, path)
	}

	return &model.CachedSeries{Rows: rows, LastModified: fi.ModTime()}, nil
}

// Save overwrites the series for symbol+interval with rows, sorted
// ascending and deduplicated by timestamp. The write goes to a temp file
// which is then renamed, so concurrent readers never observe a partial
// series.
func (s *Store) Save(symbol, interval string, rows []model.OHLCV) error {
	rows = sortDedup(rows)

	tmp, err := os.CreateTemp(s.dir, ".tmp-*.csv")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache header: %w", err)
	}
	for _, row := range rows {
		rec := []string{
			row.Time.UTC().Format(time.RFC3339),
			formatFloat(row.Open),
			formatFloat(row.High),
			formatFloat(row.Low),
			formatFloat(row.Close),
			formatFloat(row.Volume),
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("write cache row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}

	path := s.Path(symbol, interval)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	s.log.Debug().Str("file", path).Int("rows", len(rows)).Msg("series saved")
	return nil
}

// Clear removes cached series. With both keys it removes one series; with
// both empty it removes everything in the namespace; with one key it
// removes every file matching that symbol or interval.
func (s *Store) Clear(symbol, interval string) error {
	var pattern string
	switch {
	case symbol != "" && interval != "":
		return removeIfExists(s.Path(symbol, interval))
	case symbol != "":
		pattern = model.NormalizeSymbol(symbol) + "_*.csv"
	case interval != "":
		pattern = "*_" + interval + ".csv"
	default:
		pattern = "*.csv"
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, pattern))
	if err != nil {
		return fmt.Errorf("glob cache files: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return fmt.Errorf("remove %s: %w", m, err)
		}
	}
	s.log.Info().Str("symbol", symbol).Str("interval", interval).
		Int("removed", len(matches)).Msg("cache cleared")
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func parseRow(rec []string) (model.OHLCV, error) {
	if len(rec) < 6 {
		return model.OHLCV{}, fmt.Errorf("want 6 fields, got %d", len(rec))
	}
	ts, err := parseTime(rec[0])
	if err != nil {
		return model.OHLCV{}, err
	}
	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(rec[i+1], 64)
		if err != nil {
			return model.OHLCV{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return model.OHLCV{
		Time:   ts,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

func parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// sortDedup returns rows ordered ascending by timestamp with duplicate
// timestamps collapsed (last occurrence wins).
func sortDedup(rows []model.OHLCV) []model.OHLCV {
	out := make([]model.OHLCV, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:0]
	for _, row := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(row.Time) {
			dedup[n-1] = row
			continue
		}
		dedup = append(dedup, row)
	}
	return dedup
}
