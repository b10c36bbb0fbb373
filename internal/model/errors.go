package model

import "errors"

// Error taxonomy for cache operations. Callers match these with errors.Is;
// wrapping sites add context via fmt.Errorf and %w.
var (
	// ErrInvalidRange means the resolved start date is after the end date.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrSourceUnavailable means the upstream adapter failed or returned
	// no rows. It is never masked by stale or empty data.
	ErrSourceUnavailable = errors.New("data source unavailable")

	// ErrCorruptData means a cached series exists but cannot be parsed.
	// The orchestrator treats it as a cache miss and refetches.
	ErrCorruptData = errors.New("corrupt cached data")

	// ErrNotFound means no cached series exists for the requested key.
	ErrNotFound = errors.New("cached series not found")
)
