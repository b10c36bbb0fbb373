// Package planner decides the actual date range requested from an upstream
// adapter for a given cache miss.
package planner

import (
	"time"

	"MarketCache/internal/model"
)

// Upstream vendors reject intraday requests reaching further back than
// roughly two years; 729 days keeps a day of slack under the hard limit.
const maxIntradayLookbackDays = 729

const (
	defaultBufferDays       = 180
	defaultMaxLookbackYears = 10
	minMaxLookbackYears     = 3
	maxMaxLookbackYears     = 15
)

// Config tunes how far beyond the caller's window a fetch reaches.
type Config struct {
	// BufferDays is extra history fetched before the requested start so
	// indicator calculators have warm-up data.
	BufferDays int
	// MaxLookbackYears caps daily-or-coarser fetches; clamped to [3, 15].
	MaxLookbackYears int
}

// FetchPlan is the resolved range for one upstream request. It lives for a
// single call and is never persisted.
type FetchPlan struct {
	RequestedStart time.Time
	RequestedEnd   time.Time
	SourceStart    time.Time
	SourceEnd      time.Time
}

// Planner computes fetch plans. The zero value is not usable; call New.
type Planner struct {
	bufferDays       int
	maxLookbackYears int
}

// New returns a Planner with cfg's limits, applying defaults and clamping
// MaxLookbackYears into its supported range.
func New(cfg Config) *Planner {
	p := &Planner{
		bufferDays:       cfg.BufferDays,
		maxLookbackYears: cfg.MaxLookbackYears,
	}
	if p.bufferDays <= 0 {
		p.bufferDays = defaultBufferDays
	}
	if p.maxLookbackYears == 0 {
		p.maxLookbackYears = defaultMaxLookbackYears
	}
	if p.maxLookbackYears < minMaxLookbackYears {
		p.maxLookbackYears = minMaxLookbackYears
	}
	if p.maxLookbackYears > maxMaxLookbackYears {
		p.maxLookbackYears = maxMaxLookbackYears
	}
	return p
}

// Plan computes the source fetch range for a normalized request window.
// The source range is expanded backward by the buffer, floored at the
// vendor's lookback limit, and always extends through now so the cached
// file stays reusable for later, wider requests.
func (p *Planner) Plan(normalizedStart, end time.Time, interval string, now time.Time) FetchPlan {
	sourceStart := normalizedStart.AddDate(0, 0, -p.bufferDays)

	var floor time.Time
	if model.IsIntraday(interval) {
		floor = now.AddDate(0, 0, -maxIntradayLookbackDays)
	} else {
		floor = now.AddDate(-p.maxLookbackYears, 0, 0)
	}
	if sourceStart.Before(floor) {
		sourceStart = floor
	}

	return FetchPlan{
		RequestedStart: normalizedStart,
		RequestedEnd:   end,
		SourceStart:    sourceStart,
		SourceEnd:      now,
	}
}
