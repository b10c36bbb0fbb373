// Package warmer refreshes configured series on a cron schedule so
// interactive callers mostly hit a fresh cache.
package warmer

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"MarketCache/internal/series"
)

// Warmer pre-fetches a set of symbol+interval pairs on a schedule.
type Warmer struct {
	Cron      *cron.Cron
	Cache     *series.Cache
	Symbols   []string
	Intervals []string

	lookbackDays int
	runTimeout   time.Duration
	ctx          context.Context
	log          zerolog.Logger
}

// New creates a Warmer driving cache refreshes for the given pairs.
func New(ctx context.Context, cache *series.Cache, symbols, intervals []string, lookbackDays int) *Warmer {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	return &Warmer{
		Cron:         cron.New(cron.WithSeconds()),
		Cache:        cache,
		Symbols:      symbols,
		Intervals:    intervals,
		lookbackDays: lookbackDays,
		runTimeout:   5 * time.Minute,
		ctx:          ctx,
		log:          log.With().Str("component", "warmer").Logger(),
	}
}

// Register adds the warm task under the given cron spec (with seconds).
func (w *Warmer) Register(cronSpec string) error {
	if _, err := w.Cron.AddFunc(cronSpec, w.warmTask); err != nil {
		return fmt.Errorf("register warm task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (w *Warmer) Start() {
	w.Cron.Start()
	w.log.Info().Strs("symbols", w.Symbols).Strs("intervals", w.Intervals).
		Msg("warmer started")
}

// Stop stops the cron scheduler gracefully.
func (w *Warmer) Stop() {
	w.Cron.Stop()
	w.log.Info().Msg("warmer stopped")
}

// RunNow executes the warm task immediately (manual trigger / run-on-start).
func (w *Warmer) RunNow() {
	w.warmTask()
}

func (w *Warmer) warmTask() {
	ctx, cancel := context.WithTimeout(w.ctx, w.runTimeout)
	defer cancel()

	for _, symbol := range w.Symbols {
		for _, iv := range w.Intervals {
			q := series.DefaultQuery(symbol, iv)
			q.LookbackDays = w.lookbackDays
			// Force a refresh regardless of file age; the result is
			// persisted through the normal save path.
			q.MaxCacheAge = time.Nanosecond

			points, err := w.Cache.GetSeries(ctx, q)
			if err != nil {
				w.log.Error().Str("symbol", symbol).Str("interval", iv).
					Err(err).Msg("warm fetch failed")
				continue
			}
			w.log.Info().Str("symbol", symbol).Str("interval", iv).
				Int("rows", len(points)).Msg("series warmed")

			if ctx.Err() != nil {
				w.log.Warn().Err(ctx.Err()).Msg("warm run cut short")
				return
			}
		}
	}
}
