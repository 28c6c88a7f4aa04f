package marketdata

import (
	"strings"

	"marketdata/internal/provider"
)

// commonTickers is the last-resort search table for widely held names, used
// when every upstream is down or rate limited.
var commonTickers = []provider.SearchResult{
	{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ"},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Exchange: "NASDAQ"},
	{Symbol: "MSFT", Name: "Microsoft Corporation", Exchange: "NASDAQ"},
	{Symbol: "AMZN", Name: "Amazon.com, Inc.", Exchange: "NASDAQ"},
	{Symbol: "TSLA", Name: "Tesla, Inc.", Exchange: "NASDAQ"},
	{Symbol: "META", Name: "Meta Platforms, Inc.", Exchange: "NASDAQ"},
	{Symbol: "NVDA", Name: "NVIDIA Corporation", Exchange: "NASDAQ"},
	{Symbol: "JPM", Name: "JPMorgan Chase & Co.", Exchange: "NYSE"},
	{Symbol: "V", Name: "Visa Inc.", Exchange: "NYSE"},
	{Symbol: "JNJ", Name: "Johnson & Johnson", Exchange: "NYSE"},
}

func searchCommonTickers(query string) []provider.SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []provider.SearchResult
	for _, t := range commonTickers {
		if strings.Contains(strings.ToLower(t.Symbol), q) ||
			strings.Contains(strings.ToLower(t.Name), q) {
			out = append(out, t)
		}
	}
	return out
}

// staticRates holds approximate rates for common pairs so conversion still
// answers when every FX source is down. Keys are "FROM:TO".
var staticRates = map[string]float64{
	"USD:INR": 83.5,
	"INR:USD": 0.012,
	"USD:EUR": 0.92,
	"EUR:USD": 1.09,
	"USD:GBP": 0.79,
	"GBP:USD": 1.27,
}
