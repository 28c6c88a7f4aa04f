package marketdata

import (
	"context"
	"errors"
	"time"

	"marketdata/internal/cache"
	"marketdata/internal/errs"
	"marketdata/internal/provider"
	"marketdata/internal/symbols"
)

// GetQuote returns the current quote for a symbol, trying the cache, then
// every symbol variant across the provider cascade under the quote retry
// policy.
func (s *Service) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	start := time.Now()
	q, err := s.getQuote(ctx, symbol)
	s.met.Observe("get_quote", start, err)
	return q, err
}

func (s *Service) getQuote(ctx context.Context, symbol string) (Quote, error) {
	sym := canonical(symbol)
	if sym == "" {
		return Quote{}, errs.NotFound(symbol)
	}

	key := cache.QuoteKey(sym)
	var q Quote
	if s.cache.GetJSON(ctx, key, &q) {
		return q, nil
	}

	if len(s.quotes) == 0 {
		return Quote{}, errs.Unavailable("", sym, nil)
	}
	// Do not burn the retry budget when every upstream is cooling down.
	if wait, blocked := s.blockedAll(quoteProviderNames(s.quotes)); blocked {
		return Quote{}, errs.RateLimited("", sym, wait, nil)
	}

	variants := symbols.Resolve(sym)

	var snap provider.Snapshot
	err := s.quotePolicy.Do(ctx, s.breakers, func(ctx context.Context, attempt int) (string, error) {
		var lastErr error
		for _, v := range variants {
			for _, p := range s.quotes {
				if !s.breakers.For(p.Name()).Allow() {
					continue
				}
				got, ferr := p.Snapshot(ctx, v)
				if ferr != nil {
					s.log.Debug("quote lookup failed",
						"provider", p.Name(), "symbol", v, "attempt", attempt, "err", ferr)
					lastErr = ferr
					continue
				}
				if !got.Usable() {
					lastErr = errs.Unavailable(p.Name(), v, nil)
					continue
				}
				snap = got
				return p.Name(), nil
			}
		}
		if lastErr == nil {
			lastErr = errs.NotFound(sym)
		}
		return "", lastErr
	})
	if err != nil {
		return Quote{}, s.quoteError(sym, err)
	}

	q = quoteFromSnapshot(sym, snap)
	s.cache.SetJSON(ctx, key, q, cache.TTLQuote)
	return q, nil
}

// quoteError shapes the terminal error of an exhausted lookup. Rate-limit
// failures keep their kind and gain the breaker's remaining block as the
// retry-after hint; anything else collapses to not-found so callers can tell
// "try later" from "bad symbol".
func (s *Service) quoteError(sym string, err error) error {
	if errs.IsRateLimited(err) {
		wait := errs.RetryAfterOf(err)
		if name := errs.ProviderOf(err); name != "" {
			if d := s.breakers.For(name).RetryAfter(); d > wait {
				wait = d
			}
		}
		return errs.RateLimited(errs.ProviderOf(err), sym, wait, err)
	}
	var e *errs.Error
	if errors.As(err, &e) && e.Kind == errs.KindUnavailable {
		return err
	}
	return errs.NotFound(sym)
}

func quoteFromSnapshot(sym string, snap provider.Snapshot) Quote {
	current := snap.Closes[len(snap.Closes)-1]
	prev := current
	if len(snap.Closes) > 1 {
		prev = snap.Closes[len(snap.Closes)-2]
	}
	change := current - prev
	var pct float64
	if prev != 0 {
		pct = change / prev * 100
	}
	name := snap.Name
	if name == "" {
		name = sym
	}
	return Quote{
		Symbol:        sym,
		Name:          name,
		CurrentPrice:  current,
		Change:        change,
		ChangePercent: pct,
		Volume:        snap.Volume,
		MarketCap:     snap.MarketCap,
		Sector:        snap.Sector,
		Industry:      snap.Industry,
	}
}

// GetHistory returns session bars for a symbol and period. History is
// best-effort: any failure, including every provider being blocked, yields an
// empty slice rather than an error.
func (s *Service) GetHistory(ctx context.Context, symbol, period string) ([]provider.Bar, error) {
	start := time.Now()
	bars, err := s.getHistory(ctx, symbol, period)
	s.met.Observe("get_history", start, err)
	return bars, err
}

func (s *Service) getHistory(ctx context.Context, symbol, period string) ([]provider.Bar, error) {
	sym := canonical(symbol)
	if sym == "" || !provider.ValidPeriod(period) {
		return []provider.Bar{}, nil
	}

	key := cache.HistoryKey(sym, period)
	var bars []provider.Bar
	if s.cache.GetJSON(ctx, key, &bars) {
		return bars, nil
	}

	if _, blocked := s.blockedAll(historyProviderNames(s.histories)); blocked || len(s.histories) == 0 {
		return []provider.Bar{}, nil
	}

	variants := symbols.Resolve(sym)

	err := s.historyPolicy.Do(ctx, s.breakers, func(ctx context.Context, attempt int) (string, error) {
		var lastErr error
		for _, v := range variants {
			for _, p := range s.histories {
				if !s.breakers.For(p.Name()).Allow() {
					continue
				}
				got, ferr := p.History(ctx, v, period)
				if ferr != nil {
					s.log.Debug("history lookup failed",
						"provider", p.Name(), "symbol", v, "period", period, "attempt", attempt, "err", ferr)
					lastErr = ferr
					continue
				}
				if len(got) == 0 {
					lastErr = errs.Unavailable(p.Name(), v, nil)
					continue
				}
				bars = got
				return p.Name(), nil
			}
		}
		if lastErr == nil {
			lastErr = errs.NotFound(sym)
		}
		return "", lastErr
	})
	if err != nil {
		s.log.Debug("history exhausted, returning empty", "symbol", sym, "period", period, "err", err)
		return []provider.Bar{}, nil
	}

	s.cache.SetJSON(ctx, key, bars, cache.TTLHistory)
	return bars, nil
}
