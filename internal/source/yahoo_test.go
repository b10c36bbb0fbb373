package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MarketCache/internal/httpx"
)

func newTestYahoo(serverURL string) *Yahoo {
	y := NewYahoo(httpx.New(httpx.Options{
		RequestsPerSec:  100,
		MaxRetryElapsed: time.Millisecond,
	}))
	y.BaseURL = serverURL
	return y
}

func chartJSON(timestamps []int64, closes []float64) string {
	var ts, quotes []string
	for i, t := range timestamps {
		ts = append(ts, fmt.Sprintf("%d", t))
		quotes = append(quotes, fmt.Sprintf("%g", closes[i]))
	}
	q := "[" + strings.Join(quotes, ",") + "]"
	return fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%s],
		"indicators":{"quote":[{"open":%s,"high":%s,"low":%s,"close":%s,"volume":%s}]}}],
		"error":null}}`, strings.Join(ts, ","), q, q, q, q, q)
}

func TestYahoo_FetchOHLCV(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		// Second bar out of order and a null bar to be skipped.
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1742169600,1742083200,1742256000],
			"indicators":{"quote":[{
				"open":[101,100,null],"high":[103,102,null],
				"low":[99,98,null],"close":[102,101,null],
				"volume":[1000,900,null]}]}}],"error":null}}`)
	}))
	defer srv.Close()

	y := newTestYahoo(srv.URL)
	start := time.Unix(1742083200, 0)
	end := time.Unix(1742256000, 0)

	bars, err := y.FetchOHLCV(context.Background(), "AAPL", start, end, "1d")
	if err != nil {
		t.Fatalf("FetchOHLCV: %v", err)
	}
	if !strings.Contains(gotPath, "/v8/finance/chart/AAPL") {
		t.Errorf("unexpected path %q", gotPath)
	}
	for _, want := range []string{"period1=1742083200", "period2=1742256000", "interval=1d"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2 (null bar skipped)", len(bars))
	}
	if !bars[0].Time.Before(bars[1].Time) {
		t.Error("bars not sorted ascending")
	}
}

func TestYahoo_SymbolMapping(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, chartJSON([]int64{1742083200}, []float64{5800}))
	}))
	defer srv.Close()

	y := newTestYahoo(srv.URL)
	if _, err := y.FetchOHLCV(context.Background(), "SPX500", time.Unix(0, 0), time.Now(), "1d"); err != nil {
		t.Fatalf("FetchOHLCV: %v", err)
	}
	if !strings.Contains(gotPath, "%5EGSPC") && !strings.Contains(gotPath, "^GSPC") {
		t.Errorf("SPX500 not mapped to ^GSPC: path %q", gotPath)
	}
}

func TestYahoo_EmptyResultIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[],"error":null}}`)
	}))
	defer srv.Close()

	y := newTestYahoo(srv.URL)
	if _, err := y.FetchOHLCV(context.Background(), "AAPL", time.Unix(0, 0), time.Now(), "1d"); err == nil {
		t.Fatal("empty chart result must be an error, not empty success")
	}
}

func TestYahoo_APIErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[],"error":{"code":"Not Found","description":"No data found"}}}`)
	}))
	defer srv.Close()

	y := newTestYahoo(srv.URL)
	_, err := y.FetchOHLCV(context.Background(), "NOPE", time.Unix(0, 0), time.Now(), "1d")
	if err == nil || !strings.Contains(err.Error(), "No data found") {
		t.Fatalf("got %v, want API error description surfaced", err)
	}
}
