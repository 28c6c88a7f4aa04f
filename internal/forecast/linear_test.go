package forecast

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearFollowsTrend(t *testing.T) {
	history := make([]Observation, 10)
	base := 100.0
	for i := range history {
		history[i] = Observation{
			Date:  fmt.Sprintf("2026-08-%02d", i+10),
			Price: base + float64(i)*2, // +2 per day
		}
	}

	points, err := Linear().Forecast(history, 3)
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.InDelta(t, 120.0, points[0].PredictedPrice, 0.01)
	assert.InDelta(t, 122.0, points[1].PredictedPrice, 0.01)
	assert.InDelta(t, 124.0, points[2].PredictedPrice, 0.01)

	assert.Equal(t, "2026-08-20", points[0].Date)
	assert.Equal(t, "2026-08-22", points[2].Date)

	for _, p := range points {
		assert.Less(t, p.LowerBound, p.PredictedPrice)
		assert.Greater(t, p.UpperBound, p.PredictedPrice)
	}
}

func TestLinearBoundsWidenWithHorizon(t *testing.T) {
	history := []Observation{
		{Date: "2026-08-01", Price: 100},
		{Date: "2026-08-02", Price: 103},
		{Date: "2026-08-03", Price: 99},
		{Date: "2026-08-04", Price: 104},
		{Date: "2026-08-05", Price: 101},
	}

	points, err := Linear().Forecast(history, 5)
	require.NoError(t, err)

	firstBand := points[0].UpperBound - points[0].LowerBound
	lastBand := points[4].UpperBound - points[4].LowerBound
	assert.Greater(t, lastBand, firstBand)
}

func TestLinearRejectsThinHistory(t *testing.T) {
	_, err := Linear().Forecast([]Observation{{Date: "2026-08-01", Price: 100}}, 5)
	require.Error(t, err)
}
