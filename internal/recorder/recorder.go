// Package recorder journals cache activity for offline analysis
// (hit rates, upstream latency, fetch volumes).
package recorder

import "time"

// FetchEvent describes one upstream adapter call.
type FetchEvent struct {
	Symbol   string
	Interval string
	Source   string
	Start    time.Time
	End      time.Time
	Rows     int
	Duration time.Duration
	Err      string // empty on success
}

// QueryEvent describes one GetSeries call at the cache boundary.
type QueryEvent struct {
	Symbol   string
	Interval string
	CacheHit bool
	Rows     int
}

// Recorder persists cache activity. Implementations must be safe for
// concurrent use; failures are logged by the caller, never propagated.
type Recorder interface {
	RecordFetch(evt *FetchEvent) error
	RecordQuery(evt *QueryEvent) error
	Close() error
}
