package marketdata

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"marketdata/internal/cache"
)

// cachedRate is the cache payload for a resolved FX rate. The source tags
// along so a later hit reports the same provenance.
type cachedRate struct {
	Rate   float64          `json:"rate"`
	Source ConversionSource `json:"source"`
}

// ConvertCurrency converts an amount between currencies. It never fails:
// the pair rate cascades from the cache, to the live FX API, to derived
// sources, to the static table, to a rate of 1.0. Identity conversions short
// circuit without touching the network or the cache.
func (s *Service) ConvertCurrency(ctx context.Context, amount float64, from, to string) Conversion {
	start := time.Now()
	conv := s.convert(ctx, amount, from, to)
	s.met.Observe("convert_currency", start, nil)
	return conv
}

func (s *Service) convert(ctx context.Context, amount float64, from, to string) Conversion {
	from = canonical(from)
	to = canonical(to)

	if from == to {
		return conversion(amount, from, to, 1.0, SourceIdentity)
	}

	key := cache.RateKey(from, to)
	var cached cachedRate
	if s.cache.GetJSON(ctx, key, &cached) && cached.Rate > 0 {
		return conversion(amount, from, to, cached.Rate, cached.Source)
	}

	for i, p := range s.rates {
		if !s.breakers.For(p.Name()).Allow() {
			continue
		}
		rate, err := p.Rate(ctx, from, to)
		if err != nil || rate <= 0 {
			s.log.Debug("rate lookup failed", "provider", p.Name(), "from", from, "to", to, "err", err)
			continue
		}
		s.breakers.OnSuccess(p.Name())
		source := SourceDerived
		if i == 0 {
			source = SourceLive
		}
		s.cache.SetJSON(ctx, key, cachedRate{Rate: rate, Source: source}, cache.TTLRate)
		return conversion(amount, from, to, rate, source)
	}

	// Approximate fallbacks are deliberately not cached, so a recovered
	// upstream replaces them on the next call.
	if rate, ok := staticRates[from+":"+to]; ok {
		return conversion(amount, from, to, rate, SourceStatic)
	}
	s.log.Warn("no exchange rate resolved, using 1.0", "from", from, "to", to)
	return conversion(amount, from, to, 1.0, SourceDefault)
}

func conversion(amount float64, from, to string, rate float64, source ConversionSource) Conversion {
	converted, _ := decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(rate)).
		Round(4).
		Float64()
	return Conversion{
		Amount:          amount,
		From:            from,
		To:              to,
		Rate:            rate,
		ConvertedAmount: converted,
		Source:          source,
	}
}
