// Package provider defines the normalized shapes returned by all market-data
// upstreams and the capability interfaces the cascade is built from. One
// upstream package may implement several capabilities; the facade composes
// them into ordered fallback chains.
package provider

import (
	"context"
	"time"
)

// Periods are the accepted history period tokens.
var Periods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y"}

// ValidPeriod reports whether p is an accepted history period token.
func ValidPeriod(p string) bool {
	for _, v := range Periods {
		if v == p {
			return true
		}
	}
	return false
}

// Snapshot is the raw material a quote is computed from. Closes is ordered
// oldest first with the latest close last; a snapshot with no closes is not
// usable. Name and the descriptive fields are optional.
type Snapshot struct {
	Symbol    string
	Name      string
	Closes    []float64
	Volume    int64
	MarketCap int64
	Sector    string
	Industry  string
}

// Usable reports whether the snapshot carries enough data to price a symbol.
func (s Snapshot) Usable() bool { return len(s.Closes) > 0 }

// Bar is one trading session of price history.
type Bar struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// SearchResult is one match from a keyword search.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// NewsItem is one article about a symbol. Items without both a headline and
// a URL are discarded by the facade.
type NewsItem struct {
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary,omitempty"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Image       string    `json:"image,omitempty"`
}

// QuoteProvider returns pricing snapshots.
type QuoteProvider interface {
	Name() string
	Snapshot(ctx context.Context, symbol string) (Snapshot, error)
}

// HistoryProvider returns ordered session bars for one of the period tokens.
type HistoryProvider interface {
	Name() string
	History(ctx context.Context, symbol, period string) ([]Bar, error)
}

// SearchProvider performs keyword search.
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// NewsProvider returns recent news for a symbol, capped at limit.
type NewsProvider interface {
	Name() string
	News(ctx context.Context, symbol string, limit int) ([]NewsItem, error)
}

// RateProvider returns a live FX rate for a currency pair.
type RateProvider interface {
	Name() string
	Rate(ctx context.Context, from, to string) (float64, error)
}
