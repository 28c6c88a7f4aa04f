// Package yahoo talks to the public Yahoo Finance chart and search
// endpoints. It backs four capabilities: history bars, quote snapshots
// derived from a short period sweep, FX rates via the synthetic "{FROM}{TO}=X"
// pair symbol, and a news fallback from the search feed.
package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
	"resty.dev/v3"

	"marketdata/internal/errs"
	"marketdata/internal/provider"
	"marketdata/internal/ratelimit"
)

// Name identifies this upstream in breaker and limiter tables.
const Name = "yahoo"

const defaultBaseURL = "https://query1.finance.yahoo.com"

// snapshotPeriods is the sweep used to derive a quote when no explicit
// period is involved. Shorter ranges respond more reliably, so they go
// first.
var snapshotPeriods = []string{"5d", "1mo", "3mo", "1y"}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				ShortName string `json:"shortName"`
				LongName  string `json:"longName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

type searchResponse struct {
	News []struct {
		Title     string `json:"title"`
		Publisher string `json:"publisher"`
		Link      string `json:"link"`
		Published int64  `json:"providerPublishTime"`
	} `json:"news"`
}

type chartData struct {
	bars []provider.Bar
	name string
}

// Client is the Yahoo Finance adapter.
type Client struct {
	rc      *resty.Client
	limiter *ratelimit.Limiter
	sf      singleflight.Group
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the upstream base URL, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.rc.SetBaseURL(baseURL) }
}

// New builds a Yahoo client with a hard per-request timeout. limiter may be
// nil for unpaced requests.
func New(timeout time.Duration, limiter *ratelimit.Limiter, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	c := &Client{rc: rc, limiter: limiter}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Name() string { return Name }

// History returns one bar per trading session for the period token.
func (c *Client) History(ctx context.Context, symbol, period string) ([]provider.Bar, error) {
	data, err := c.chart(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	return data.bars, nil
}

// Snapshot derives a quote snapshot by sweeping chart periods until one
// yields data.
func (c *Client) Snapshot(ctx context.Context, symbol string) (provider.Snapshot, error) {
	var lastErr error
	for _, period := range snapshotPeriods {
		data, err := c.chart(ctx, symbol, period)
		if err != nil {
			lastErr = err
			if errs.IsRateLimited(err) {
				break
			}
			continue
		}
		snap := provider.Snapshot{Symbol: symbol, Name: data.name}
		for _, b := range data.bars {
			snap.Closes = append(snap.Closes, b.Close)
		}
		if n := len(data.bars); n > 0 {
			snap.Volume = data.bars[n-1].Volume
		}
		if snap.Usable() {
			return snap, nil
		}
	}
	if lastErr == nil {
		lastErr = errs.Unavailable(Name, symbol, nil)
	}
	return provider.Snapshot{}, lastErr
}

// Rate quotes the from/to pair through the synthetic FX symbol, e.g.
// USDINR=X.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	pair := fmt.Sprintf("%s%s=X", from, to)
	data, err := c.chart(ctx, pair, "5d")
	if err != nil {
		return 0, err
	}
	if len(data.bars) == 0 {
		return 0, errs.Unavailable(Name, pair, nil)
	}
	return data.bars[len(data.bars)-1].Close, nil
}

// News returns recent articles from the Yahoo search feed.
func (c *Client) News(ctx context.Context, symbol string, limit int) ([]provider.NewsItem, error) {
	if err := c.limiter.Wait(ctx, Name); err != nil {
		return nil, err
	}
	var out searchResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":         symbol,
			"newsCount": fmt.Sprint(limit),
		}).
		SetResult(&out).
		Get("/v1/finance/search")
	if err != nil {
		return nil, errs.Unavailable(Name, symbol, err)
	}
	if err := classifyStatus(resp.StatusCode(), symbol); err != nil {
		return nil, err
	}

	items := make([]provider.NewsItem, 0, len(out.News))
	for _, n := range out.News {
		items = append(items, provider.NewsItem{
			Headline:    n.Title,
			Summary:     n.Title,
			Source:      n.Publisher,
			URL:         n.Link,
			PublishedAt: time.Unix(n.Published, 0).UTC(),
		})
	}
	return items, nil
}

// chart fetches and flattens one chart response. Identical concurrent
// requests are deduplicated, so a burst of callers for the same symbol and
// period costs one upstream call.
func (c *Client) chart(ctx context.Context, symbol, period string) (chartData, error) {
	v, err, _ := c.sf.Do(symbol+":"+period, func() (any, error) {
		return c.fetchChart(ctx, symbol, period)
	})
	if err != nil {
		return chartData{}, err
	}
	return v.(chartData), nil
}

func (c *Client) fetchChart(ctx context.Context, symbol, period string) (chartData, error) {
	if err := c.limiter.Wait(ctx, Name); err != nil {
		return chartData{}, err
	}
	var out chartResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"range":    period,
			"interval": "1d",
		}).
		SetResult(&out).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		return chartData{}, errs.Unavailable(Name, symbol, err)
	}
	if err := classifyStatus(resp.StatusCode(), symbol); err != nil {
		return chartData{}, err
	}
	if len(out.Chart.Result) == 0 {
		return chartData{}, errs.Unavailable(Name, symbol, fmt.Errorf("no data returned for %s", symbol))
	}

	res := out.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return chartData{}, errs.Unavailable(Name, symbol, fmt.Errorf("no data returned for %s", symbol))
	}
	q := res.Indicators.Quote[0]

	data := chartData{name: res.Meta.LongName}
	if data.name == "" {
		data.name = res.Meta.ShortName
	}
	for i, ts := range res.Timestamp {
		bar := provider.Bar{Date: time.Unix(ts, 0).UTC().Format("2006-01-02")}
		if i < len(q.Open) {
			bar.Open = q.Open[i]
		}
		if i < len(q.High) {
			bar.High = q.High[i]
		}
		if i < len(q.Low) {
			bar.Low = q.Low[i]
		}
		if i < len(q.Close) {
			bar.Close = q.Close[i]
		}
		if i < len(q.Volume) {
			bar.Volume = q.Volume[i]
		}
		data.bars = append(data.bars, bar)
	}
	return data, nil
}

func classifyStatus(status int, symbol string) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return errs.RateLimited(Name, symbol, 0, nil)
	case status == http.StatusNotFound:
		return errs.Unavailable(Name, symbol, fmt.Errorf("no data returned (status %d)", status))
	default:
		return errs.Unavailable(Name, symbol, fmt.Errorf("unexpected status %d", status))
	}
}
