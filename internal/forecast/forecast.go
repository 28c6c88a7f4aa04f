// Package forecast declares the opaque forecasting collaborator. The access
// layer feeds it price history and stores whatever it returns; the model
// itself lives elsewhere.
package forecast

// Observation is one historical (date, price) sample, ordered oldest first.
type Observation struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Price float64 `json:"price"`
}

// Point is one predicted price with its confidence bounds.
type Point struct {
	Date           string  `json:"date"` // YYYY-MM-DD
	PredictedPrice float64 `json:"predicted_price"`
	LowerBound     float64 `json:"lower_bound"`
	UpperBound     float64 `json:"upper_bound"`
}

// Forecaster fits a model to history and predicts horizonDays forward.
// Implementations must return points strictly after the last observation,
// ordered by date.
type Forecaster interface {
	Forecast(history []Observation, horizonDays int) ([]Point, error)
}

// Func adapts a plain function to the Forecaster interface.
type Func func(history []Observation, horizonDays int) ([]Point, error)

func (f Func) Forecast(history []Observation, horizonDays int) ([]Point, error) {
	return f(history, horizonDays)
}
