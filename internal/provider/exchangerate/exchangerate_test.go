package exchangerate_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdata/internal/errs"
	"marketdata/internal/provider/exchangerate"
)

func TestRate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/test-key/pair/USD/INR", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"result":          "success",
			"conversion_rate": 83.42,
		})
	}))
	defer srv.Close()

	c := exchangerate.New("test-key", 5*time.Second, nil, exchangerate.WithBaseURL(srv.URL))

	rate, err := c.Rate(t.Context(), "USD", "INR")
	require.NoError(t, err)
	assert.Equal(t, 83.42, rate)
}

func TestRateErrorResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result":     "error",
			"error-type": "unsupported-code",
		})
	}))
	defer srv.Close()

	c := exchangerate.New("test-key", 5*time.Second, nil, exchangerate.WithBaseURL(srv.URL))

	_, err := c.Rate(t.Context(), "USD", "XYZ")
	require.Error(t, err)
	assert.Equal(t, errs.KindUnavailable, errs.KindOf(err))
}

func TestRateTooManyRequests(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := exchangerate.New("test-key", 5*time.Second, nil, exchangerate.WithBaseURL(srv.URL))

	_, err := c.Rate(t.Context(), "USD", "INR")
	require.Error(t, err)
	assert.Equal(t, errs.KindRateLimited, errs.KindOf(err))
}
