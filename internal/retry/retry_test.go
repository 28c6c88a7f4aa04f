package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketdata/internal/errs"
)

type recordingReporter struct {
	successes []string
	failures  []string
}

func (r *recordingReporter) OnSuccess(p string) { r.successes = append(r.successes, p) }
func (r *recordingReporter) OnFailure(p string) { r.failures = append(r.failures, p) }

// noSleep records requested delays without waiting.
func noSleep(slept *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
}

func TestDo_FirstAttemptSuccess_NoSleepNoRetry(t *testing.T) {
	var slept []time.Duration
	p := Policy{MaxAttempts: 5, BackoffCap: 10 * time.Second, Sleep: noSleep(&slept)}
	rep := &recordingReporter{}

	calls := 0
	err := p.Do(context.Background(), rep, func(context.Context, int) (string, error) {
		calls++
		return "yahoo", nil
	})

	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Empty(t, slept, "no delay before attempt zero")
	require.Equal(t, []string{"yahoo"}, rep.successes)
	require.Empty(t, rep.failures)
}

func TestDo_BackoffDoublesAndCaps(t *testing.T) {
	var slept []time.Duration
	p := Policy{MaxAttempts: 5, BackoffCap: 10 * time.Second, Sleep: noSleep(&slept)}

	err := p.Do(context.Background(), nil, func(context.Context, int) (string, error) {
		return "", errs.Unavailable("yahoo", "XYZ", errors.New("boom"))
	})

	require.Error(t, err)
	require.Equal(t, []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second, // capped
	}, slept)
}

func TestDo_RateLimitEarlyStopPenalizesBreaker(t *testing.T) {
	var slept []time.Duration
	p := Policy{MaxAttempts: 5, BackoffCap: 10 * time.Second, RateLimitStop: 4, Sleep: noSleep(&slept)}
	rep := &recordingReporter{}

	calls := 0
	err := p.Do(context.Background(), rep, func(context.Context, int) (string, error) {
		calls++
		return "", errs.RateLimited("yahoo", "XYZ", 0, nil)
	})

	require.Equal(t, errs.KindRateLimited, errs.KindOf(err))
	require.Equal(t, 4, calls, "stops at the rate-limit threshold, not the attempt budget")
	require.Equal(t, []string{"yahoo"}, rep.failures)
	require.Empty(t, rep.successes)
}

func TestDo_TransientFailuresDoNotPenalizeBreaker(t *testing.T) {
	var slept []time.Duration
	p := Policy{MaxAttempts: 3, BackoffCap: 5 * time.Second, RateLimitStop: 2, Sleep: noSleep(&slept)}
	rep := &recordingReporter{}

	err := p.Do(context.Background(), rep, func(context.Context, int) (string, error) {
		return "", errs.Unavailable("yahoo", "XYZ", errors.New("connection reset"))
	})

	require.Equal(t, errs.KindUnavailable, errs.KindOf(err))
	require.Empty(t, rep.failures, "transient failures never open the breaker")
}

func TestDo_OpaqueRateLimitTextClassifiedViaFallback(t *testing.T) {
	var slept []time.Duration
	p := Policy{MaxAttempts: 3, RateLimitStop: 2, Sleep: noSleep(&slept)}

	calls := 0
	err := p.Do(context.Background(), nil, func(context.Context, int) (string, error) {
		calls++
		return "", errors.New("GET /chart -> 429 Too Many Requests")
	})

	require.True(t, errs.IsRateLimited(err))
	require.Equal(t, 2, calls)
}

func TestDo_SuccessAfterFailures(t *testing.T) {
	var slept []time.Duration
	p := Policy{MaxAttempts: 3, BackoffCap: 5 * time.Second, Sleep: noSleep(&slept)}
	rep := &recordingReporter{}

	calls := 0
	err := p.Do(context.Background(), rep, func(_ context.Context, attempt int) (string, error) {
		calls++
		if attempt < 2 {
			return "", errs.Unavailable("yahoo", "XYZ", nil)
		}
		return "alphavantage", nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, []string{"alphavantage"}, rep.successes)
}

func TestDo_CanceledContextStopsSleep(t *testing.T) {
	p := Policy{MaxAttempts: 3, BackoffCap: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Do(ctx, nil, func(context.Context, int) (string, error) {
		return "", errs.Unavailable("yahoo", "XYZ", nil)
	})
	require.ErrorIs(t, err, context.Canceled)
}
