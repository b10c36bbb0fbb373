package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"MarketCache/internal/httpx"
	"MarketCache/internal/model"
)

func TestAggregateDailyToWeekly(t *testing.T) {
	day := func(d int, c float64) model.OHLCV {
		return model.OHLCV{
			Time: time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC),
			Open: c - 1, High: c + 2, Low: c - 2, Close: c, Volume: 100,
		}
	}
	// Mon 17 - Wed 19, then Mon 24.
	daily := []model.OHLCV{day(17, 10), day(18, 12), day(19, 11), day(24, 15)}

	weekly := aggregateDailyToWeekly(daily)
	if len(weekly) != 2 {
		t.Fatalf("got %d weekly bars, want 2", len(weekly))
	}
	w := weekly[0]
	if w.Open != 9 || w.Close != 11 || w.High != 14 || w.Low != 8 || w.Volume != 300 {
		t.Errorf("week 1 aggregated wrong: %+v", w)
	}
}

func TestVsTrader_EmptyResultIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	f := NewVsTrader(srv.URL, "", httpx.New(httpx.Options{
		RequestsPerSec:  100,
		MaxRetryElapsed: time.Millisecond,
	}))
	if _, err := f.FetchOHLCV(context.Background(), "AAPL", time.Unix(0, 0), time.Now(), "1d"); err == nil {
		t.Fatal("empty bar list must be an error, not empty success")
	}
}

func TestVsTrader_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `[{"timestamp":1742169600,"open":1,"high":2,"low":0.5,"close":1.5,"volume":100}]`)
	}))
	defer srv.Close()

	f := NewVsTrader(srv.URL, "secret", httpx.New(httpx.Options{
		RequestsPerSec:  100,
		MaxRetryElapsed: time.Millisecond,
	}))
	bars, err := f.FetchOHLCV(context.Background(), "AAPL", time.Unix(0, 0), time.Now(), "1d")
	if err != nil {
		t.Fatalf("FetchOHLCV: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1", len(bars))
	}
}
