// Package series is the market-data cache orchestrator: it resolves a
// caller's date window, serves rows from the file cache while fresh, and
// refreshes from the upstream adapter on a miss.
package series

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"MarketCache/internal/interval"
	"MarketCache/internal/model"
	"MarketCache/internal/planner"
	"MarketCache/internal/recorder"
	"MarketCache/internal/source"
	"MarketCache/internal/store"
)

const (
	defaultLookbackDays = 30
	defaultMaxCacheAge  = 24 * time.Hour
)

// Query describes one series request. Zero Start/End and non-positive
// LookbackDays/MaxCacheAge fall back to defaults; use DefaultQuery for the
// standard settings.
type Query struct {
	Symbol       string
	Start        time.Time // zero: End - LookbackDays
	End          time.Time // zero: now
	Interval     string
	LookbackDays int           // default 30
	UseCache     bool
	MaxCacheAge  time.Duration // default 24h
}

// DefaultQuery returns a Query with the standard defaults: 30-day
// lookback, caching on, 24h freshness window.
func DefaultQuery(symbol, intervalID string) Query {
	return Query{
		Symbol:       symbol,
		Interval:     intervalID,
		LookbackDays: defaultLookbackDays,
		UseCache:     true,
		MaxCacheAge:  defaultMaxCacheAge,
	}
}

// Cache composes the store, planner, and adapter into the public
// market-data API.
type Cache struct {
	store   *store.Store
	planner *planner.Planner
	adapter source.Adapter
	rec     recorder.Recorder
	log     zerolog.Logger

	// keyLocks serializes refreshes per (symbol, interval) so concurrent
	// misses for one key fetch once.
	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Cache. rec may be nil, in which case activity is not
// journaled.
func New(st *store.Store, pl *planner.Planner, adapter source.Adapter, rec recorder.Recorder) *Cache {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Cache{
		store:    st,
		planner:  pl,
		adapter:  adapter,
		rec:      rec,
		log:      log.With().Str("component", "series").Logger(),
		keyLocks: make(map[string]*sync.Mutex),
		now:      time.Now,
	}
}

func (c *Cache) keyLock(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lk, ok := c.keyLocks[key]
	if !ok {
		lk = &sync.Mutex{}
		c.keyLocks[key] = lk
	}
	return lk
}

// GetSeries returns the OHLCV series for q's window as typed points,
// ascending by timestamp. Rows come from the cache when fresh, otherwise
// from the upstream adapter (persisted on the way through when caching is
// on). Errors are one of model.ErrInvalidRange or
// model.ErrSourceUnavailable; stale or empty data is never substituted.
func (c *Cache) GetSeries(ctx context.Context, q Query) ([]model.MarketDataPoint, error) {
	symbol := model.NormalizeSymbol(q.Symbol)
	now := c.now()

	start, end, err := resolveRange(q, now)
	if err != nil {
		return nil, err
	}
	normStart := interval.Floor(start, q.Interval).UTC()
	end = end.UTC()

	rows, hit, err := c.loadOrFetch(ctx, symbol, q, normStart, end, now)
	if err != nil {
		return nil, err
	}

	points := c.convert(filterRange(rows, normStart, end), symbol, q.Interval)

	if err := c.rec.RecordQuery(&recorder.QueryEvent{
		Symbol:   symbol,
		Interval: q.Interval,
		CacheHit: hit,
		Rows:     len(points),
	}); err != nil {
		c.log.Warn().Err(err).Msg("record query failed")
	}
	return points, nil
}

// GetFrame is GetSeries with a columnar return shape for bulk numeric
// consumers.
func (c *Cache) GetFrame(ctx context.Context, q Query) (*model.Frame, error) {
	points, err := c.GetSeries(ctx, q)
	if err != nil {
		return nil, err
	}
	f := model.NewFrame(points)
	if f.Symbol == "" {
		f.Symbol = model.NormalizeSymbol(q.Symbol)
		f.Interval = q.Interval
	}
	return f, nil
}

// ClearCache removes cached series: one with both keys, everything with
// neither, all matches with one.
func (c *Cache) ClearCache(symbol, intervalID string) error {
	return c.store.Clear(symbol, intervalID)
}

// loadOrFetch returns the full (unfiltered) row set for the key, from the
// cache when fresh or from upstream otherwise. The per-key lock spans the
// whole check-fetch-save sequence so concurrent misses refresh once.
func (c *Cache) loadOrFetch(ctx context.Context, symbol string, q Query, normStart, end, now time.Time) ([]model.OHLCV, bool, error) {
	maxAge := q.MaxCacheAge
	if maxAge <= 0 {
		maxAge = defaultMaxCacheAge
	}

	lk := c.keyLock(symbol + "_" + q.Interval)
	lk.Lock()
	defer lk.Unlock()

	if q.UseCache && c.store.IsFresh(symbol, q.Interval, maxAge) {
		cached, err := c.store.Load(symbol, q.Interval)
		switch {
		case err == nil:
			c.log.Debug().Str("symbol", symbol).Str("interval", q.Interval).
				Int("rows", len(cached.Rows)).Msg("cache hit")
			return cached.Rows, true, nil
		case errors.Is(err, model.ErrCorruptData), errors.Is(err, model.ErrNotFound):
			// Fall through to a refetch.
			c.log.Warn().Str("symbol", symbol).Str("interval", q.Interval).
				Err(err).Msg("cache unreadable, refetching")
		default:
			return nil, false, err
		}
	}

	plan := c.planner.Plan(normStart, end, q.Interval, now)

	fetchStart := c.now()
	rows, err := c.adapter.FetchOHLCV(ctx, symbol, plan.SourceStart, plan.SourceEnd, q.Interval)
	evt := &recorder.FetchEvent{
		Symbol:   symbol,
		Interval: q.Interval,
		Source:   c.adapter.Name(),
		Start:    plan.SourceStart,
		End:      plan.SourceEnd,
		Rows:     len(rows),
		Duration: c.now().Sub(fetchStart),
	}
	if err != nil {
		evt.Err = err.Error()
	}
	if recErr := c.rec.RecordFetch(evt); recErr != nil {
		c.log.Warn().Err(recErr).Msg("record fetch failed")
	}

	if err != nil {
		return nil, false, fmt.Errorf("%w: %s %s: %v", model.ErrSourceUnavailable, symbol, q.Interval, err)
	}
	if len(rows) == 0 {
		return nil, false, fmt.Errorf("%w: %s %s: adapter returned no rows", model.ErrSourceUnavailable, symbol, q.Interval)
	}

	if q.UseCache {
		if err := c.store.Save(symbol, q.Interval, rows); err != nil {
			// The fetched data is still good; serve it and leave the stale
			// file for the next refresh attempt.
			c.log.Warn().Str("symbol", symbol).Str("interval", q.Interval).
				Err(err).Msg("cache save failed")
		}
	}
	return rows, false, nil
}

// resolveRange applies the Query's date defaults and validates ordering.
func resolveRange(q Query, now time.Time) (start, end time.Time, err error) {
	end = q.End
	if end.IsZero() {
		end = now
	}
	start = q.Start
	if start.IsZero() {
		lookback := q.LookbackDays
		if lookback <= 0 {
			lookback = defaultLookbackDays
		}
		start = end.AddDate(0, 0, -lookback)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %s after end %s",
			model.ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return start, end, nil
}

// filterRange keeps rows inside [start, end], inclusive on both ends.
// Bounds and rows are compared in UTC; rows without explicit zones were
// already read as UTC by the store.
func filterRange(rows []model.OHLCV, start, end time.Time) []model.OHLCV {
	out := make([]model.OHLCV, 0, len(rows))
	for _, row := range rows {
		ts := row.Time.UTC()
		if ts.Before(start) || ts.After(end) {
			continue
		}
		row.Time = ts
		out = append(out, row)
	}
	return out
}

// convert maps raw bars to typed points, dropping (never failing on)
// individual bad rows.
func (c *Cache) convert(rows []model.OHLCV, symbol, intervalID string) []model.MarketDataPoint {
	points := make([]model.MarketDataPoint, 0, len(rows))
	for _, row := range rows {
		if row.Time.IsZero() {
			c.log.Warn().Str("symbol", symbol).Str("interval", intervalID).
				Msg("dropping row with zero timestamp")
			continue
		}
		points = append(points, model.MarketDataPoint{
			Symbol:    symbol,
			Timestamp: row.Time,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
			Interval:  intervalID,
		})
	}
	return points
}
