// Command fetch is a one-shot CLI: it resolves quotes for a list of symbols
// through the same cascade the server uses and prints them as JSON. Useful
// for smoke testing provider keys and connectivity.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"marketdata/internal/config"
	"marketdata/internal/logger"
	"marketdata/internal/marketdata"
	"marketdata/internal/provider"
	"marketdata/internal/provider/alphavantage"
	"marketdata/internal/provider/yahoo"
	"marketdata/internal/ratelimit"
	"marketdata/internal/retry"
)

func main() {
	var symbolsCSV string
	var timeoutSec int
	var concurrency int
	var withHistory bool
	var period string

	flag.StringVar(&symbolsCSV, "symbols", "AAPL", "comma-separated ticker symbols")
	flag.IntVar(&timeoutSec, "timeout", 30, "overall timeout seconds")
	flag.IntVar(&concurrency, "concurrency", 4, "parallel symbol lookups")
	flag.BoolVar(&withHistory, "history", false, "also fetch history for each symbol")
	flag.StringVar(&period, "period", "1mo", "history period when -history is set")
	flag.Parse()

	symbols := splitCSV(symbolsCSV)
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "no symbols given")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	limiter := ratelimit.New(cfg.RateLimits())
	yahooClient := yahoo.New(cfg.RequestTimeout(), limiter, yahoo.WithBaseURL(cfg.YahooBaseURL))

	quotes := []provider.QuoteProvider{yahooClient}
	if cfg.AlphaVantageAPIKey != "" {
		quotes = append(quotes, alphavantage.New(cfg.AlphaVantageAPIKey, cfg.RequestTimeout(), limiter,
			alphavantage.WithBaseURL(cfg.AlphaVantageBaseURL)))
	}

	// One attempt per symbol; a CLI run should fail fast, not hold the
	// terminal through a backoff schedule.
	single := retry.Single
	svc := marketdata.New(marketdata.Config{
		Quotes:      quotes,
		Histories:   []provider.HistoryProvider{yahooClient},
		Logger:      log,
		QuotePolicy: &single,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()

	type row struct {
		Quote marketdata.Quote `json:"quote"`
		Bars  []provider.Bar   `json:"bars,omitempty"`
		Error string           `json:"error,omitempty"`
	}

	var mu sync.Mutex
	rows := make(map[string]row, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, sym := range symbols {
		g.Go(func() error {
			var r row
			q, err := svc.GetQuote(gctx, sym)
			if err != nil {
				r.Error = err.Error()
			} else {
				r.Quote = q
				if withHistory {
					r.Bars, _ = svc.GetHistory(gctx, sym, period)
				}
			}
			mu.Lock()
			rows[strings.ToUpper(sym)] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range rows {
		if r.Error != "" {
			failed++
		}
	}

	// encoding/json emits map keys sorted, so the output is stable.
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(rows)

	if failed == len(symbols) {
		os.Exit(1)
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
