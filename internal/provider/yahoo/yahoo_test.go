package yahoo_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdata/internal/errs"
	"marketdata/internal/provider/yahoo"
)

func chartBody(symbol string, closes []float64) map[string]any {
	base := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	timestamps := make([]int64, len(closes))
	volumes := make([]int64, len(closes))
	for i := range closes {
		timestamps[i] = base.AddDate(0, 0, i).Unix()
		volumes[i] = int64(1000 + i)
	}
	return map[string]any{
		"chart": map[string]any{
			"result": []map[string]any{{
				"meta": map[string]any{
					"symbol":   symbol,
					"longName": "Test Corp",
				},
				"timestamp": timestamps,
				"indicators": map[string]any{
					"quote": []map[string]any{{
						"open":   closes,
						"high":   closes,
						"low":    closes,
						"close":  closes,
						"volume": volumes,
					}},
				},
			}},
		},
	}
}

func TestHistory(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		require.Equal(t, "1mo", r.URL.Query().Get("range"))
		require.Equal(t, "1d", r.URL.Query().Get("interval"))
		json.NewEncoder(w).Encode(chartBody("AAPL", []float64{100, 102, 101}))
	}))
	defer srv.Close()

	c := yahoo.New(5*time.Second, nil, yahoo.WithBaseURL(srv.URL))

	bars, err := c.History(t.Context(), "AAPL", "1mo")
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, "2026-08-24", bars[0].Date)
	assert.Equal(t, 100.0, bars[0].Close)
	assert.Equal(t, 101.0, bars[2].Close)
	assert.Equal(t, int64(1002), bars[2].Volume)
}

func TestSnapshotSweepsPeriods(t *testing.T) {
	t.Parallel()

	var ranges []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		period := r.URL.Query().Get("range")
		ranges = append(ranges, period)
		if period == "5d" {
			// Empty result forces the sweep to the next period.
			json.NewEncoder(w).Encode(map[string]any{"chart": map[string]any{"result": []any{}}})
			return
		}
		json.NewEncoder(w).Encode(chartBody("AAPL", []float64{100, 110}))
	}))
	defer srv.Close()

	c := yahoo.New(5*time.Second, nil, yahoo.WithBaseURL(srv.URL))

	snap, err := c.Snapshot(t.Context(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, []string{"5d", "1mo"}, ranges)
	assert.Equal(t, "Test Corp", snap.Name)
	assert.Equal(t, []float64{100, 110}, snap.Closes)
	assert.Equal(t, int64(1001), snap.Volume)
}

func TestSnapshotStopsSweepOnRateLimit(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := yahoo.New(5*time.Second, nil, yahoo.WithBaseURL(srv.URL))

	_, err := c.Snapshot(t.Context(), "AAPL")
	require.Error(t, err)
	assert.Equal(t, errs.KindRateLimited, errs.KindOf(err))
	// One 429 must abort the whole period sweep.
	assert.Equal(t, 1, calls)
}

func TestRateUsesPairSymbol(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v8/finance/chart/USDINR=X", r.URL.Path)
		json.NewEncoder(w).Encode(chartBody("USDINR=X", []float64{83.1, 83.4}))
	}))
	defer srv.Close()

	c := yahoo.New(5*time.Second, nil, yahoo.WithBaseURL(srv.URL))

	rate, err := c.Rate(t.Context(), "USD", "INR")
	require.NoError(t, err)
	assert.Equal(t, 83.4, rate)
}

func TestNews(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/finance/search", r.URL.Path)
		require.Equal(t, "AAPL", r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode(map[string]any{
			"news": []map[string]any{{
				"title":               "Apple hits a record",
				"publisher":           "Yahoo Finance",
				"link":                "https://example.com/record",
				"providerPublishTime": time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC).Unix(),
			}},
		})
	}))
	defer srv.Close()

	c := yahoo.New(5*time.Second, nil, yahoo.WithBaseURL(srv.URL))

	items, err := c.News(t.Context(), "AAPL", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Apple hits a record", items[0].Headline)
	assert.Equal(t, "Yahoo Finance", items[0].Source)
}

func TestChartEmptyResultIsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"chart": map[string]any{"result": []any{}}})
	}))
	defer srv.Close()

	c := yahoo.New(5*time.Second, nil, yahoo.WithBaseURL(srv.URL))

	_, err := c.History(t.Context(), "NOPE", "1mo")
	require.Error(t, err)
	assert.Equal(t, errs.KindUnavailable, errs.KindOf(err))
}
