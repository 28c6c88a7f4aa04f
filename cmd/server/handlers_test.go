package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketdata/internal/breaker"
	"marketdata/internal/errs"
	"marketdata/internal/logger"
	"marketdata/internal/marketdata"
	"marketdata/internal/provider"
	"marketdata/internal/retry"
)

type fakeQuoteProvider struct {
	name string
	snap provider.Snapshot
	err  error
}

func (f fakeQuoteProvider) Name() string { return f.name }
func (f fakeQuoteProvider) Snapshot(context.Context, string) (provider.Snapshot, error) {
	return f.snap, f.err
}

func newTestServer(quotes ...provider.QuoteProvider) *server {
	return &server{svc: newTestService(nil, quotes...), log: logger.Discard()}
}

// newTestService builds a facade with no inter-attempt sleeping, so
// exhaustion paths stay fast.
func newTestService(reg *breaker.Registry, quotes ...provider.QuoteProvider) *marketdata.Service {
	pol := retry.Quote
	pol.Sleep = func(context.Context, time.Duration) error { return nil }
	return marketdata.New(marketdata.Config{
		Breakers:    reg,
		Quotes:      quotes,
		Logger:      logger.Discard(),
		QuotePolicy: &pol,
	})
}

func routeQuote(s *server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stocks/{symbol}", s.handleQuote)
	mux.HandleFunc("GET /api/currency/convert", s.handleConvert)
	return mux
}

func TestHandleQuote(t *testing.T) {
	s := newTestServer(fakeQuoteProvider{
		name: "yahoo",
		snap: provider.Snapshot{Name: "Apple Inc.", Closes: []float64{100, 110}},
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stocks/AAPL", nil)
	routeQuote(s).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var q marketdata.Quote
	if err := json.Unmarshal(rr.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.Symbol != "AAPL" || q.CurrentPrice != 110 || q.Change != 10 {
		t.Fatalf("unexpected quote: %+v", q)
	}
}

func TestHandleQuote_NotFound(t *testing.T) {
	s := newTestServer(fakeQuoteProvider{
		name: "yahoo",
		err:  errs.NotFound("NOPE"),
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stocks/NOPE", nil)
	routeQuote(s).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHandleQuote_RateLimitedSetsRetryAfter(t *testing.T) {
	reg := breaker.NewRegistry(nil)
	reg.OnFailure("yahoo")

	svc := marketdata.New(marketdata.Config{
		Breakers: reg,
		Quotes:   []provider.QuoteProvider{fakeQuoteProvider{name: "yahoo"}},
		Logger:   logger.Discard(),
	})
	s := &server{svc: svc, log: logger.Discard()}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stocks/AAPL", nil)
	routeQuote(s).ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

func TestHandleConvert_Identity(t *testing.T) {
	s := newTestServer()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/currency/convert?amount=100&from=USD&to=USD", nil)
	routeQuote(s).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var conv marketdata.Conversion
	if err := json.Unmarshal(rr.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if conv.Source != marketdata.SourceIdentity || conv.ConvertedAmount != 100 {
		t.Fatalf("unexpected conversion: %+v", conv)
	}
}

func TestHandleConvert_BadAmount(t *testing.T) {
	s := newTestServer()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/currency/convert?amount=abc&from=USD&to=INR", nil)
	routeQuote(s).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}
