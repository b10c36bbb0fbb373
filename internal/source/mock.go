package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketCache/internal/model"
)

// Mock returns controllable fixed data for development and testing.
type Mock struct {
	Rows []model.OHLCV
	Err  error

	mu        sync.Mutex
	calls     int
	lastStart time.Time
	lastEnd   time.Time
}

func (m *Mock) Name() string { return "mock" }

// FetchOHLCV returns the configured rows restricted to [start, end], or
// the configured error. It records the call for assertions.
func (m *Mock) FetchOHLCV(_ context.Context, symbol string, start, end time.Time, _ string) ([]model.OHLCV, error) {
	m.mu.Lock()
	m.calls++
	m.lastStart, m.lastEnd = start, end
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	var rows []model.OHLCV
	for _, row := range m.Rows {
		if row.Time.Before(start) || row.Time.After(end) {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("mock: no data for %s in range", symbol)
	}
	return rows, nil
}

// Calls reports how many times FetchOHLCV ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRange reports the range of the most recent fetch.
func (m *Mock) LastRange() (time.Time, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastStart, m.lastEnd
}

// GenerateBars builds count synthetic daily bars ending at end, useful for
// seeding a Mock.
func GenerateBars(basePrice float64, count int, end time.Time) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   end.AddDate(0, 0, -(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
