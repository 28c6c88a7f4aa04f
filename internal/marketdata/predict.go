package marketdata

import (
	"context"
	"fmt"
	"time"

	"marketdata/internal/cache"
	"marketdata/internal/errs"
	"marketdata/internal/forecast"
	"marketdata/internal/store"
)

// minForecastHistory is the fewest observations the forecaster is trusted
// with.
const minForecastHistory = 30

// Predict produces a price forecast for a symbol over the given horizon. It
// feeds two years of history to the configured forecaster, persists the
// points when a store is wired, and caches the result for a day.
func (s *Service) Predict(ctx context.Context, symbol string, days int) ([]forecast.Point, error) {
	start := time.Now()
	points, err := s.predict(ctx, symbol, days)
	s.met.Observe("predict", start, err)
	return points, err
}

func (s *Service) predict(ctx context.Context, symbol string, days int) ([]forecast.Point, error) {
	sym := canonical(symbol)
	if sym == "" {
		return nil, errs.NotFound(symbol)
	}
	if days <= 0 {
		days = 7
	}
	if s.forecaster == nil {
		return nil, errs.Unavailable("", sym, fmt.Errorf("no forecaster configured"))
	}

	key := cache.ForecastKey(sym, days)
	var points []forecast.Point
	if s.cache.GetJSON(ctx, key, &points) {
		return points, nil
	}

	bars, err := s.GetHistory(ctx, sym, "2y")
	if err != nil {
		return nil, err
	}
	if len(bars) < minForecastHistory {
		return nil, errs.Unavailable("", sym,
			fmt.Errorf("insufficient history: %d observations, need %d", len(bars), minForecastHistory))
	}

	history := make([]forecast.Observation, len(bars))
	for i, b := range bars {
		history[i] = forecast.Observation{Date: b.Date, Price: b.Close}
	}

	points, err = s.forecaster.Forecast(history, days)
	if err != nil {
		return nil, errs.Unavailable("", sym, err)
	}

	if s.repo != nil {
		rows := make([]store.Prediction, len(points))
		for i, p := range points {
			rows[i] = store.Prediction{
				Symbol:         sym,
				PredictedDate:  p.Date,
				PredictedPrice: p.PredictedPrice,
				LowerBound:     p.LowerBound,
				UpperBound:     p.UpperBound,
			}
		}
		if err := s.repo.ReplacePredictions(sym, rows); err != nil {
			s.log.Warn("failed to persist forecast", "symbol", sym, "err", err)
		}
	}

	s.cache.SetJSON(ctx, key, points, cache.TTLForecast)
	return points, nil
}
