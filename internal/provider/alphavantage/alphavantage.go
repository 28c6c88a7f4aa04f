// Package alphavantage adapts the Alpha Vantage query API. It contributes a
// quote fallback (GLOBAL_QUOTE), the primary keyword search (SYMBOL_SEARCH)
// and a news fallback (NEWS_SENTIMENT).
package alphavantage

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"marketdata/internal/errs"
	"marketdata/internal/provider"
	"marketdata/internal/ratelimit"
)

// Name identifies this upstream in breaker and limiter tables.
const Name = "alphavantage"

const defaultBaseURL = "https://www.alphavantage.co/query"

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Price         string `json:"05. price"`
		Volume        string `json:"06. volume"`
		PreviousClose string `json:"08. previous close"`
	} `json:"Global Quote"`
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

type symbolSearchResponse struct {
	BestMatches []struct {
		Symbol string `json:"1. symbol"`
		Name   string `json:"2. name"`
		Region string `json:"4. region"`
	} `json:"bestMatches"`
	Note string `json:"Note"`
}

type newsResponse struct {
	Feed []struct {
		Title         string `json:"title"`
		Summary       string `json:"summary"`
		Source        string `json:"source"`
		URL           string `json:"url"`
		TimePublished string `json:"time_published"` // 20250602T133000
		BannerImage   string `json:"banner_image"`
	} `json:"feed"`
}

// Client is the Alpha Vantage adapter.
type Client struct {
	apiKey  string
	rc      *resty.Client
	limiter *ratelimit.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the upstream base URL, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.rc.SetBaseURL(baseURL) }
}

// New builds an Alpha Vantage client. limiter may be nil for unpaced
// requests.
func New(apiKey string, timeout time.Duration, limiter *ratelimit.Limiter, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	c := &Client{apiKey: apiKey, rc: rc, limiter: limiter}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Name() string { return Name }

// Snapshot returns a two-point snapshot (previous close, current price) from
// GLOBAL_QUOTE.
func (c *Client) Snapshot(ctx context.Context, symbol string) (provider.Snapshot, error) {
	if err := c.limiter.Wait(ctx, Name); err != nil {
		return provider.Snapshot{}, err
	}
	var out globalQuoteResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
			"apikey":   c.apiKey,
		}).
		SetResult(&out).
		Get("")
	if err != nil {
		return provider.Snapshot{}, errs.Unavailable(Name, symbol, err)
	}
	if err := classifyStatus(resp.StatusCode(), symbol); err != nil {
		return provider.Snapshot{}, err
	}
	// The free tier reports quota exhaustion as a 200 with a Note.
	if out.Note != "" || out.Information != "" {
		return provider.Snapshot{}, errs.RateLimited(Name, symbol, 0, nil)
	}
	if out.GlobalQuote.Price == "" {
		return provider.Snapshot{}, errs.Unavailable(Name, symbol, fmt.Errorf("no data returned for %s", symbol))
	}

	price, err := strconv.ParseFloat(out.GlobalQuote.Price, 64)
	if err != nil {
		return provider.Snapshot{}, errs.Unavailable(Name, symbol, fmt.Errorf("parse price: %w", err))
	}
	snap := provider.Snapshot{Symbol: symbol, Closes: []float64{price}}
	if prev, err := strconv.ParseFloat(out.GlobalQuote.PreviousClose, 64); err == nil && prev > 0 {
		snap.Closes = []float64{prev, price}
	}
	if vol, err := strconv.ParseInt(out.GlobalQuote.Volume, 10, 64); err == nil {
		snap.Volume = vol
	}
	return snap, nil
}

// Search runs SYMBOL_SEARCH. ".BSE" matches are rewritten to the ".NS" form
// the chart upstreams accept, deduplicated against the rest of the result
// set.
func (c *Client) Search(ctx context.Context, query string) ([]provider.SearchResult, error) {
	if err := c.limiter.Wait(ctx, Name); err != nil {
		return nil, err
	}
	var out symbolSearchResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "SYMBOL_SEARCH",
			"keywords": query,
			"apikey":   c.apiKey,
		}).
		SetResult(&out).
		Get("")
	if err != nil {
		return nil, errs.Unavailable(Name, query, err)
	}
	if err := classifyStatus(resp.StatusCode(), query); err != nil {
		return nil, err
	}
	if out.Note != "" {
		return nil, errs.RateLimited(Name, query, 0, nil)
	}

	var results []provider.SearchResult
	seen := make(map[string]bool)
	for _, m := range out.BestMatches {
		if m.Symbol == "" {
			continue
		}
		if strings.HasSuffix(m.Symbol, ".BSE") {
			base := strings.TrimSuffix(m.Symbol, ".BSE")
			alt := base + ".NS"
			if base == "" || seen[alt] {
				continue
			}
			seen[alt] = true
			results = append(results, provider.SearchResult{
				Symbol:   alt,
				Name:     m.Name + " (NSE listing)",
				Exchange: "India/NSE",
			})
			continue
		}
		if seen[m.Symbol] {
			continue
		}
		seen[m.Symbol] = true
		results = append(results, provider.SearchResult{
			Symbol:   m.Symbol,
			Name:     m.Name,
			Exchange: m.Region,
		})
	}
	return results, nil
}

// News runs NEWS_SENTIMENT for the symbol.
func (c *Client) News(ctx context.Context, symbol string, limit int) ([]provider.NewsItem, error) {
	if err := c.limiter.Wait(ctx, Name); err != nil {
		return nil, err
	}
	var out newsResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "NEWS_SENTIMENT",
			"tickers":  symbol,
			"limit":    fmt.Sprint(limit),
			"apikey":   c.apiKey,
		}).
		SetResult(&out).
		Get("")
	if err != nil {
		return nil, errs.Unavailable(Name, symbol, err)
	}
	if err := classifyStatus(resp.StatusCode(), symbol); err != nil {
		return nil, err
	}

	items := make([]provider.NewsItem, 0, len(out.Feed))
	for _, f := range out.Feed {
		item := provider.NewsItem{
			Headline: f.Title,
			Summary:  f.Summary,
			Source:   f.Source,
			URL:      f.URL,
			Image:    f.BannerImage,
		}
		if item.Summary == "" {
			item.Summary = f.Title
		}
		if ts, err := time.Parse("20060102T150405", f.TimePublished); err == nil {
			item.PublishedAt = ts.UTC()
		}
		items = append(items, item)
	}
	return items, nil
}

func classifyStatus(status int, symbol string) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return errs.RateLimited(Name, symbol, 0, nil)
	default:
		return errs.Unavailable(Name, symbol, fmt.Errorf("unexpected status %d", status))
	}
}
