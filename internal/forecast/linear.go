package forecast

import (
	"fmt"
	"math"
	"time"
)

// Linear returns a least-squares trend forecaster. The bounds widen with the
// horizon: one residual standard deviation per forecast day, floored at half
// a percent of the last price so a flat series still shows a band.
func Linear() Forecaster {
	return Func(linearForecast)
}

func linearForecast(history []Observation, horizonDays int) ([]Point, error) {
	n := len(history)
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 observations, got %d", n)
	}
	if horizonDays <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizonDays)
	}

	// Fit price = a + b*i over observation index.
	var sumX, sumY, sumXY, sumXX float64
	for i, o := range history {
		x := float64(i)
		sumX += x
		sumY += o.Price
		sumXY += x * o.Price
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return nil, fmt.Errorf("degenerate history")
	}
	b := (fn*sumXY - sumX*sumY) / denom
	a := (sumY - b*sumX) / fn

	var ss float64
	for i, o := range history {
		r := o.Price - (a + b*float64(i))
		ss += r * r
	}
	sigma := math.Sqrt(ss / fn)

	last, err := time.Parse("2006-01-02", history[n-1].Date)
	if err != nil {
		return nil, fmt.Errorf("parse last date %q: %w", history[n-1].Date, err)
	}
	floor := math.Abs(history[n-1].Price) * 0.005

	points := make([]Point, horizonDays)
	for d := 1; d <= horizonDays; d++ {
		price := a + b*float64(n-1+d)
		band := sigma * math.Sqrt(float64(d))
		if band < floor {
			band = floor
		}
		points[d-1] = Point{
			Date:           last.AddDate(0, 0, d).Format("2006-01-02"),
			PredictedPrice: round2(price),
			LowerBound:     round2(price - band),
			UpperBound:     round2(price + band),
		}
	}
	return points, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
