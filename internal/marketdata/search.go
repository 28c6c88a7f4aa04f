package marketdata

import (
	"context"
	"strings"
	"time"

	"marketdata/internal/cache"
	"marketdata/internal/errs"
	"marketdata/internal/provider"
	"marketdata/internal/symbols"
)

const maxSearchResults = 10

// Search performs a keyword search through the search cascade, falling back
// to treating the query as a ticker and, last, to a static common-ticker
// table. Returns at most ten results.
func (s *Service) Search(ctx context.Context, query string) ([]provider.SearchResult, error) {
	start := time.Now()
	res, err := s.search(ctx, query)
	s.met.Observe("search", start, err)
	return res, err
}

func (s *Service) search(ctx context.Context, query string) ([]provider.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []provider.SearchResult{}, nil
	}

	key := cache.SearchKey(query)
	var results []provider.SearchResult
	if s.cache.GetJSON(ctx, key, &results) {
		return results, nil
	}

	rateLimited := false
	for _, p := range s.searchers {
		if !s.breakers.For(p.Name()).Allow() {
			rateLimited = true
			continue
		}
		got, err := p.Search(ctx, query)
		if err != nil {
			if errs.IsRateLimited(err) {
				rateLimited = true
			}
			s.log.Debug("search failed", "provider", p.Name(), "query", query, "err", err)
			continue
		}
		s.breakers.OnSuccess(p.Name())
		if len(got) > 0 {
			results = got
			break
		}
	}

	if len(results) == 0 {
		results = s.searchAsTicker(ctx, query)
	}
	if len(results) == 0 {
		results = searchCommonTickers(query)
	}

	if len(results) == 0 {
		if rateLimited {
			return nil, errs.RateLimited("", query, 0, nil)
		}
		return []provider.SearchResult{}, nil
	}

	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}
	s.cache.SetJSON(ctx, key, results, cache.TTLSearch)
	return results, nil
}

// searchAsTicker validates a short uppercase-able query directly against the
// quote cascade, so "AAPL" still resolves when keyword search is down.
func (s *Service) searchAsTicker(ctx context.Context, query string) []provider.SearchResult {
	sym := canonical(query)
	if sym == "" || len(sym) > 6 || strings.ContainsAny(sym, " \t") {
		return nil
	}
	for _, p := range s.quotes {
		if !s.breakers.For(p.Name()).Allow() {
			continue
		}
		snap, err := p.Snapshot(ctx, sym)
		if err != nil || !snap.Usable() {
			continue
		}
		s.breakers.OnSuccess(p.Name())
		name := snap.Name
		if name == "" {
			name = sym
		}
		return []provider.SearchResult{{Symbol: sym, Name: name}}
	}
	return nil
}

// GetNews returns recent articles for a symbol, at most limit, skipping items
// without both a headline and a URL. The base symbol (suffix stripped) is
// tried when the exchange-qualified one yields nothing.
func (s *Service) GetNews(ctx context.Context, symbol string, limit int) ([]provider.NewsItem, error) {
	start := time.Now()
	items, err := s.getNews(ctx, symbol, limit)
	s.met.Observe("get_news", start, err)
	return items, err
}

func (s *Service) getNews(ctx context.Context, symbol string, limit int) ([]provider.NewsItem, error) {
	sym := canonical(symbol)
	if sym == "" {
		return []provider.NewsItem{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	key := cache.NewsKey(sym, limit)
	var items []provider.NewsItem
	if s.cache.GetJSON(ctx, key, &items) {
		return items, nil
	}

	tries := []string{sym}
	if base := symbols.Base(sym); base != sym {
		tries = append(tries, base)
	}

	rateLimited := false
	for _, p := range s.news {
		if !s.breakers.For(p.Name()).Allow() {
			rateLimited = true
			continue
		}
		for _, t := range tries {
			got, err := p.News(ctx, t, limit)
			if err != nil {
				if errs.IsRateLimited(err) {
					rateLimited = true
				}
				s.log.Debug("news lookup failed", "provider", p.Name(), "symbol", t, "err", err)
				continue
			}
			got = filterNews(got)
			if len(got) > 0 {
				s.breakers.OnSuccess(p.Name())
				items = got
				break
			}
		}
		if len(items) > 0 {
			break
		}
	}

	if len(items) == 0 {
		if rateLimited {
			return nil, errs.RateLimited("", sym, 0, nil)
		}
		return []provider.NewsItem{}, nil
	}

	if len(items) > limit {
		items = items[:limit]
	}
	s.cache.SetJSON(ctx, key, items, cache.TTLNews)
	return items, nil
}

func filterNews(items []provider.NewsItem) []provider.NewsItem {
	out := items[:0]
	for _, it := range items {
		if it.Headline != "" && it.URL != "" {
			out = append(out, it)
		}
	}
	return out
}
