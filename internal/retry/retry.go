// Package retry wraps provider attempts with bounded retries, exponential
// backoff and rate-limit aware early termination. The executor is the single
// place that informs the circuit breakers about call outcomes.
package retry

import (
	"context"
	"time"

	"marketdata/internal/errs"
)

// Reporter receives call outcomes per provider. *breaker.Registry satisfies
// it.
type Reporter interface {
	OnSuccess(provider string)
	OnFailure(provider string)
}

// AttemptFunc performs one full attempt (for quote/history lookups: one sweep
// of all symbol variants across all providers). On success it returns the
// name of the provider that produced the result; otherwise it returns a
// classified error attributable to the last provider that failed.
type AttemptFunc func(ctx context.Context, attempt int) (provider string, err error)

// Policy bounds one class of lookups.
type Policy struct {
	// MaxAttempts is the attempt budget; attempts are numbered 0..MaxAttempts-1.
	MaxAttempts int
	// BackoffCap limits the exponential inter-attempt delay of min(2^i, cap).
	BackoffCap time.Duration
	// RateLimitStop terminates the loop once this many rate-limited attempts
	// have been observed, penalizing the offending provider's breaker instead
	// of hammering an upstream already signaling overload. Zero disables the
	// early stop.
	RateLimitStop int

	// Sleep overrides the inter-attempt delay, mainly for tests. Pass nil
	// for a context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Quote, History and Single are the lookup policies. The per-operation
// asymmetry (5 attempts/10s for quotes, 2 attempts/5s for history) mirrors
// the upstream behavior this layer was tuned against.
var (
	Quote   = Policy{MaxAttempts: 5, BackoffCap: 10 * time.Second, RateLimitStop: 4}
	History = Policy{MaxAttempts: 2, BackoffCap: 5 * time.Second, RateLimitStop: 2}
	Single  = Policy{MaxAttempts: 1}
)

// Do runs fn under the policy. The first success reports OnSuccess for the
// winning provider and returns nil. Rate-limited failures count toward the
// early-stop threshold; reaching it reports OnFailure for the provider that
// last signaled the limit and returns its error. Exhausting the budget
// returns the last error without penalizing any breaker, since exhausted
// variants are not attributable to a single upstream.
func (p Policy) Do(ctx context.Context, rep Reporter, fn AttemptFunc) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	rateLimited := 0

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff(attempt, p.BackoffCap)); err != nil {
				return err
			}
		}

		provider, err := fn(ctx, attempt)
		if err == nil {
			if rep != nil && provider != "" {
				rep.OnSuccess(provider)
			}
			return nil
		}
		lastErr = err

		if errs.IsRateLimited(err) {
			rateLimited++
			if p.RateLimitStop > 0 && rateLimited >= p.RateLimitStop {
				if rep != nil {
					if name := errs.ProviderOf(err); name != "" {
						rep.OnFailure(name)
					}
				}
				return err
			}
		}
	}
	return lastErr
}

// backoff returns min(2^attempt, limit) seconds.
func backoff(attempt int, limit time.Duration) time.Duration {
	d := time.Duration(1<<uint(attempt)) * time.Second
	if limit > 0 && d > limit {
		return limit
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
