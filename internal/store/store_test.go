package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"MarketCache/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{RootDir: t.TempDir(), Namespace: "yahoo"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func bar(t *testing.T, ts string, close float64) model.OHLCV {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t.Fatalf("parse %q: %v", ts, err)
	}
	return model.OHLCV{
		Time: parsed,
		Open: close - 1, High: close + 2, Low: close - 2, Close: close,
		Volume: 1000,
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	// Unsorted with a duplicate timestamp; Load must see it sorted and
	// deduplicated.
	rows := []model.OHLCV{
		bar(t, "2025-03-19T00:00:00Z", 103),
		bar(t, "2025-03-17T00:00:00Z", 101),
		bar(t, "2025-03-18T00:00:00Z", 102),
		bar(t, "2025-03-18T00:00:00Z", 999), // duplicate, last wins
	}
	if err := s.Save("aapl", "1d", rows); err != nil {
		t.Fatalf("Save: %v", err)
	}

	series, err := s.Load("AAPL", "1d")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(series.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(series.Rows))
	}
	for i := 1; i < len(series.Rows); i++ {
		if !series.Rows[i-1].Time.Before(series.Rows[i].Time) {
			t.Fatalf("rows not strictly ascending at %d", i)
		}
	}
	if got := series.Rows[1].Close; got != 999 {
		t.Errorf("duplicate timestamp: got close %v, want last write 999", got)
	}
}

func TestLoad_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Load("MSFT", "1d"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	s := newTestStore(t)
	path := s.Path("AAPL", "1d")
	if err := os.WriteFile(path, []byte("this is not a csv header\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load("AAPL", "1d"); !errors.Is(err, model.ErrCorruptData) {
		t.Fatalf("got %v, want ErrCorruptData", err)
	}
}

func TestLoad_SkipsBadRows(t *testing.T) {
	s := newTestStore(t)
	content := "Date,Open,High,Low,Close,Volume\n" +
		"2025-03-17T00:00:00Z,1,2,0.5,1.5,100\n" +
		"not-a-date,1,2,0.5,1.5,100\n" +
		"2025-03-18T00:00:00Z,1,2,0.5,1.6,110\n"
	if err := os.WriteFile(s.Path("AAPL", "1d"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	series, err := s.Load("AAPL", "1d")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(series.Rows) != 2 {
		t.Fatalf("got %d rows, want 2 (bad row skipped)", len(series.Rows))
	}
}

func TestLoad_NaiveTimestampsAssumeUTC(t *testing.T) {
	s := newTestStore(t)
	content := "Date,Open,High,Low,Close,Volume\n" +
		"2025-03-17,1,2,0.5,1.5,100\n" +
		"2025-03-18 00:00:00,1,2,0.5,1.6,110\n"
	if err := os.WriteFile(s.Path("SPY", "1d"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	series, err := s.Load("SPY", "1d")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	if !series.Rows[0].Time.Equal(want) {
		t.Errorf("naive date parsed as %s, want %s", series.Rows[0].Time, want)
	}
}

func TestIsFresh(t *testing.T) {
	s := newTestStore(t)

	if s.IsFresh("AAPL", "1d", time.Hour) {
		t.Fatal("IsFresh true with empty cache")
	}

	if err := s.Save("AAPL", "1d", []model.OHLCV{bar(t, "2025-03-17T00:00:00Z", 100)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !s.IsFresh("AAPL", "1d", time.Hour) {
		t.Fatal("IsFresh false immediately after Save")
	}

	// Push the clock past maxAge.
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if s.IsFresh("AAPL", "1d", time.Hour) {
		t.Fatal("IsFresh true after maxAge elapsed")
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	rows := []model.OHLCV{bar(t, "2025-03-17T00:00:00Z", 100)}
	for _, key := range [][2]string{{"AAPL", "1d"}, {"AAPL", "1h"}, {"MSFT", "1d"}} {
		if err := s.Save(key[0], key[1], rows); err != nil {
			t.Fatalf("Save %v: %v", key, err)
		}
	}

	// One series.
	if err := s.Clear("AAPL", "1h"); err != nil {
		t.Fatal(err)
	}
	if s.Exists("AAPL", "1h") || !s.Exists("AAPL", "1d") || !s.Exists("MSFT", "1d") {
		t.Fatal("Clear(symbol, interval) removed the wrong files")
	}

	// All intervals for a symbol.
	if err := s.Clear("AAPL", ""); err != nil {
		t.Fatal(err)
	}
	if s.Exists("AAPL", "1d") || !s.Exists("MSFT", "1d") {
		t.Fatal("Clear(symbol) removed the wrong files")
	}

	// Everything.
	if err := s.Clear("", ""); err != nil {
		t.Fatal(err)
	}
	if s.Exists("MSFT", "1d") {
		t.Fatal("Clear() left files behind")
	}

	// Clearing an absent series is not an error.
	if err := s.Clear("AAPL", "1d"); err != nil {
		t.Fatalf("Clear on missing series: %v", err)
	}
}

func TestSave_AtomicReplace(t *testing.T) {
	s := newTestStore(t)
	rows := []model.OHLCV{bar(t, "2025-03-17T00:00:00Z", 100)}
	if err := s.Save("AAPL", "1d", rows); err != nil {
		t.Fatal(err)
	}
	// No temp files left behind after a successful save.
	leftovers, err := filepath.Glob(filepath.Join(s.dir, ".tmp-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("temp files left after Save: %v", leftovers)
	}
}
