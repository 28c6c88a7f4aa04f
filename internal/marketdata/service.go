// Package marketdata is the data access facade: every lookup composes the
// cache, the symbol resolver, the provider cascade and the per-provider
// circuit breakers into one call, and normalizes results and errors for
// callers.
package marketdata

import (
	"log/slog"
	"strings"
	"time"

	"marketdata/internal/breaker"
	"marketdata/internal/cache"
	"marketdata/internal/forecast"
	"marketdata/internal/metrics"
	"marketdata/internal/provider"
	"marketdata/internal/retry"
	"marketdata/internal/store"
)

// Quote is the normalized pricing payload returned to callers.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	CurrentPrice  float64 `json:"current_price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume,omitempty"`
	MarketCap     int64   `json:"market_cap,omitempty"`
	Sector        string  `json:"sector,omitempty"`
	Industry      string  `json:"industry,omitempty"`
}

// ConversionSource says where a conversion rate came from, so callers can
// tell an authoritative answer from a fallback.
type ConversionSource string

const (
	SourceIdentity ConversionSource = "identity" // same-currency short circuit
	SourceLive     ConversionSource = "live"     // dedicated FX API
	SourceDerived  ConversionSource = "derived"  // chart of the synthetic pair symbol
	SourceStatic   ConversionSource = "static"   // built-in common-pair table
	SourceDefault  ConversionSource = "default"  // nothing resolved; rate 1.0
)

// Conversion is a best-effort currency conversion. It always carries a rate.
type Conversion struct {
	Amount          float64          `json:"amount"`
	From            string           `json:"from_currency"`
	To              string           `json:"to_currency"`
	Rate            float64          `json:"exchange_rate"`
	ConvertedAmount float64          `json:"converted_amount"`
	Source          ConversionSource `json:"source"`
}

// Config wires a Service. Cascade slices are tried strictly in order. Only
// Cache-less, provider-less construction is meaningless; everything else is
// optional.
type Config struct {
	Cache    *cache.Cache
	Breakers *breaker.Registry

	Quotes    []provider.QuoteProvider
	Histories []provider.HistoryProvider
	Searchers []provider.SearchProvider
	News      []provider.NewsProvider
	// Rates is the FX cascade; the first entry is treated as the dedicated
	// live-rate API, later entries as derived sources.
	Rates []provider.RateProvider

	Forecaster forecast.Forecaster
	Store      *store.Repository

	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// QuotePolicy and HistoryPolicy override the retry budgets, mainly for
	// tests.
	QuotePolicy   *retry.Policy
	HistoryPolicy *retry.Policy
}

// Service implements the facade operations.
type Service struct {
	cache    *cache.Cache
	breakers *breaker.Registry

	quotes    []provider.QuoteProvider
	histories []provider.HistoryProvider
	searchers []provider.SearchProvider
	news      []provider.NewsProvider
	rates     []provider.RateProvider

	forecaster forecast.Forecaster
	repo       *store.Repository

	met *metrics.Metrics
	log *slog.Logger

	quotePolicy   retry.Policy
	historyPolicy retry.Policy
}

// New builds a Service from cfg, filling in defaults for anything unset.
func New(cfg Config) *Service {
	s := &Service{
		cache:         cfg.Cache,
		breakers:      cfg.Breakers,
		quotes:        cfg.Quotes,
		histories:     cfg.Histories,
		searchers:     cfg.Searchers,
		news:          cfg.News,
		rates:         cfg.Rates,
		forecaster:    cfg.Forecaster,
		repo:          cfg.Store,
		met:           cfg.Metrics,
		log:           cfg.Logger,
		quotePolicy:   retry.Quote,
		historyPolicy: retry.History,
	}
	if s.cache == nil {
		s.cache = cache.New(nil, cfg.Logger)
	}
	if s.breakers == nil {
		s.breakers = breaker.NewRegistry(nil)
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if cfg.QuotePolicy != nil {
		s.quotePolicy = *cfg.QuotePolicy
	}
	if cfg.HistoryPolicy != nil {
		s.historyPolicy = *cfg.HistoryPolicy
	}
	s.cache.OnHit = s.met.CacheHit
	s.cache.OnMiss = s.met.CacheMiss
	s.breakers.OnTrip = s.met.BreakerTrip
	return s
}

// Breakers exposes the breaker registry, for health reporting.
func (s *Service) Breakers() *breaker.Registry { return s.breakers }

func canonical(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// blockedAll reports whether every listed provider's breaker refuses calls,
// and the shortest remaining block among them.
func (s *Service) blockedAll(names []string) (time.Duration, bool) {
	if len(names) == 0 {
		return 0, false
	}
	var minWait time.Duration
	for _, name := range names {
		b := s.breakers.For(name)
		if b.Allow() {
			return 0, false
		}
		if wait := b.RetryAfter(); minWait == 0 || wait < minWait {
			minWait = wait
		}
	}
	return minWait, true
}

func quoteProviderNames(ps []provider.QuoteProvider) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name()
	}
	return names
}

func historyProviderNames(ps []provider.HistoryProvider) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name()
	}
	return names
}
