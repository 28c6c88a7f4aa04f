// Package breaker implements the per-provider circuit breaker that gates
// calls to rate-limited upstreams. Failures escalate the block duration in
// 15 minute steps capped at one hour; recent successes forgive the failure
// count one call at a time instead of instantly, so a flapping upstream does
// not thrash between open and closed.
package breaker

import (
	"sync"
	"time"
)

const (
	blockStep     = 15 * time.Minute
	blockCap      = 60 * time.Minute
	successWindow = 5 * time.Minute
)

// Breaker tracks the health of a single upstream provider.
type Breaker struct {
	mu           sync.Mutex
	failures     int
	blockedUntil time.Time
	lastSuccess  time.Time

	now func() time.Time
}

// New returns a closed breaker. now overrides the clock; pass nil for
// time.Now.
func New(now func() time.Time) *Breaker {
	if now == nil {
		now = time.Now
	}
	return &Breaker{now: now}
}

// Allow reports whether a call to the upstream may be attempted. When an
// elapsed block is observed the breaker closes and the failure count resets,
// so the first caller after the cooldown gets a probe through.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.blockedUntil.IsZero() {
		return true
	}
	if b.now().Before(b.blockedUntil) {
		return false
	}
	b.blockedUntil = time.Time{}
	b.failures = 0
	return true
}

// OnFailure records a rate-limit failure and opens the breaker. The block
// duration grows with consecutive failures: 15m, 30m, 45m, then 60m capped.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	block := time.Duration(b.failures) * blockStep
	if block > blockCap {
		block = blockCap
	}
	b.blockedUntil = b.now().Add(block)
}

// OnSuccess records a successful call. Successes within the decay window
// reduce the failure count by one per call; when it reaches zero any pending
// block is cleared.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	recent := !b.lastSuccess.IsZero() && now.Sub(b.lastSuccess) < successWindow
	b.lastSuccess = now

	if recent && b.failures > 0 {
		b.failures--
	}
	if b.failures == 0 {
		b.blockedUntil = time.Time{}
	}
}

// RetryAfter returns how long the upstream remains blocked, or zero when the
// breaker is closed.
func (b *Breaker) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.blockedUntil.IsZero() {
		return 0
	}
	if d := b.blockedUntil.Sub(b.now()); d > 0 {
		return d
	}
	return 0
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Registry holds one breaker per upstream provider identity, created lazily
// on first use and kept for the process lifetime.
type Registry struct {
	mu  sync.Mutex
	m   map[string]*Breaker
	now func() time.Time

	// OnTrip, when set, is invoked with the provider name each time a
	// breaker records a failure. Used for metrics.
	OnTrip func(provider string)
}

// NewRegistry returns an empty registry. now overrides the clock for every
// breaker it creates; pass nil for time.Now.
func NewRegistry(now func() time.Time) *Registry {
	return &Registry{m: make(map[string]*Breaker), now: now}
}

// For returns the breaker for the named provider, creating it if needed.
func (r *Registry) For(provider string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.m[provider]
	if !ok {
		b = New(r.now)
		r.m[provider] = b
	}
	return b
}

// OnSuccess forwards a success to the named provider's breaker.
func (r *Registry) OnSuccess(provider string) { r.For(provider).OnSuccess() }

// OnFailure forwards a rate-limit failure to the named provider's breaker.
func (r *Registry) OnFailure(provider string) {
	r.For(provider).OnFailure()
	if r.OnTrip != nil {
		r.OnTrip(provider)
	}
}
