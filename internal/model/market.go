package model

import (
	"strings"
	"time"
)

// Supported interval identifiers, from finest to coarsest.
const (
	Interval1m  = "1m"
	Interval5m  = "5m"
	Interval15m = "15m"
	Interval30m = "30m"
	Interval1h  = "1h"
	Interval4h  = "4h"
	Interval1d  = "1d"
	Interval1wk = "1wk"
	Interval1mo = "1mo"
)

// Intervals lists every supported interval identifier.
var Intervals = []string{
	Interval1m, Interval5m, Interval15m, Interval30m,
	Interval1h, Interval4h,
	Interval1d, Interval1wk, Interval1mo,
}

// IsIntraday reports whether the interval is finer than one day.
// Intraday intervals are subject to the upstream 729-day lookback limit.
func IsIntraday(interval string) bool {
	switch interval {
	case Interval1m, Interval5m, Interval15m, Interval30m, Interval1h, Interval4h:
		return true
	}
	return false
}

// OHLCV represents a single candlestick bar. Time is the start of the
// bar's interval bucket.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// MarketDataPoint is one typed observation handed to consumers:
// an OHLCV bar tagged with its symbol and interval.
type MarketDataPoint struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Interval  string
}

// CachedSeries is the persisted unit for one (symbol, interval) pair.
// Rows are ascending by timestamp with no duplicates.
type CachedSeries struct {
	Rows         []OHLCV
	LastModified time.Time
}

// NormalizeSymbol returns the canonical uppercase form of a symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
