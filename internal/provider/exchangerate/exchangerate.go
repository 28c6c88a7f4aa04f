// Package exchangerate adapts the exchangerate-api.com v6 pair endpoint, the
// primary source of live FX rates.
package exchangerate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"resty.dev/v3"

	"marketdata/internal/errs"
	"marketdata/internal/provider"
	"marketdata/internal/ratelimit"
)

// Name identifies this upstream in breaker and limiter tables.
const Name = "exchangerate"

const defaultBaseURL = "https://v6.exchangerate-api.com/v6"

type pairResponse struct {
	Result         string  `json:"result"`
	ErrorType      string  `json:"error-type"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Client is the exchangerate-api adapter.
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

// New builds an exchangerate-api client. limiter may be nil for unpaced
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

var _ provider.RateProvider = (*Client)(nil)

// Rate returns the live conversion rate for the pair.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	if err := c.limiter.Wait(ctx, Name); err != nil {
		return 0, err
	}
	pair := from + "/" + to
	var out pairResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"key":  c.apiKey,
			"from": from,
			"to":   to,
		}).
		SetResult(&out).
		Get("/{key}/pair/{from}/{to}")
	if err != nil {
		return 0, errs.Unavailable(Name, pair, err)
	}
	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return 0, errs.RateLimited(Name, pair, 0, nil)
	case resp.StatusCode() != http.StatusOK:
		return 0, errs.Unavailable(Name, pair, fmt.Errorf("unexpected status %d", resp.StatusCode()))
	}
	if out.Result != "success" || out.ConversionRate == 0 {
		return 0, errs.Unavailable(Name, pair, fmt.Errorf("no data returned: %s", out.ErrorType))
	}
	return out.ConversionRate, nil
}
