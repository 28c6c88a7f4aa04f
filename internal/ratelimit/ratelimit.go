// Package ratelimit paces outbound requests per upstream provider so the
// cascade itself does not trigger the rate limits the circuit breaker exists
// to absorb. The table is injected where it is needed; there is no process
// global.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter holds one token bucket per provider name. Providers without an
// entry are not limited.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// New builds a limiter table from requests-per-second values. A provider
// mapped to zero or a negative rate is unlimited.
func New(perSecond map[string]float64) *Limiter {
	l := &Limiter{limiters: make(map[string]*rate.Limiter, len(perSecond))}
	for name, rps := range perSecond {
		if rps > 0 {
			l.limiters[name] = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
	return l
}

// Unlimited returns a table that never blocks. Used in tests and by callers
// that pace requests some other way.
func Unlimited() *Limiter {
	return &Limiter{limiters: map[string]*rate.Limiter{}}
}

// Wait blocks until the named provider may issue a request, or until ctx is
// done.
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	lim, ok := l.limiters[provider]
	l.mu.RUnlock()
	if !ok {
		return nil
	}
	return lim.Wait(ctx)
}

// Allow reports whether the named provider may issue a request right now.
func (l *Limiter) Allow(provider string) bool {
	if l == nil {
		return true
	}
	l.mu.RLock()
	lim, ok := l.limiters[provider]
	l.mu.RUnlock()
	if !ok {
		return true
	}
	return lim.Allow()
}
