// Package source contains upstream market-data adapters. Each adapter
// fetches raw OHLCV rows for one vendor.
package source

import (
	"context"
	"time"

	"MarketCache/internal/model"
)

// Adapter fetches raw OHLCV rows for a concrete symbol, range, and
// interval. Rows come back ascending by timestamp. An adapter never
// returns an empty result with a nil error: "no data" is an error, so the
// caller can tell a failed fetch from a quiet market.
type Adapter interface {
	FetchOHLCV(ctx context.Context, symbol string, start, end time.Time, interval string) ([]model.OHLCV, error)
	Name() string
}
