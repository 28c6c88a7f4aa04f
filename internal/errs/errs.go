// Package errs defines the classified error type shared by the provider
// cascade, the retry executor and the facade. Providers attach a kind at the
// point of failure; substring matching is only a fallback for opaque errors
// bubbling out of third-party clients.
package errs

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies a failed lookup.
type Kind string

const (
	// KindRateLimited means the upstream signaled overload or its circuit
	// breaker is open.
	KindRateLimited Kind = "rate_limited"
	// KindNotFound means all providers and symbol variants were exhausted
	// without a rate-limit signature; the symbol is likely invalid or
	// delisted.
	KindNotFound Kind = "not_found"
	// KindUnavailable means the upstream was reachable but returned
	// malformed or empty data, or the network failed.
	KindUnavailable Kind = "unavailable"
	// KindUnknown is returned by KindOf for errors this package cannot
	// classify.
	KindUnknown Kind = "unknown"
)

// rateLimitMarkers are substrings seen in rate-limited responses from the
// upstreams we talk to. Matched case-insensitively.
var rateLimitMarkers = []string{
	"429",
	"too many requests",
	"rate limit",
	"no data returned",
	"expecting value",
}

// Error is a classified lookup failure.
type Error struct {
	Kind     Kind
	Provider string
	Symbol   string
	// RetryAfter is set on rate-limited errors when the remaining block
	// duration is known.
	RetryAfter time.Duration
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Provider != "" {
		fmt.Fprintf(&b, " [%s]", e.Provider)
	}
	if e.Symbol != "" {
		fmt.Fprintf(&b, " %s", e.Symbol)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.RetryAfter > 0 {
		fmt.Fprintf(&b, " (retry after %s)", e.RetryAfter.Round(time.Second))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// RateLimited builds a rate-limited error. retryAfter may be zero when the
// wait is unknown.
func RateLimited(provider, symbol string, retryAfter time.Duration, cause error) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Provider:   provider,
		Symbol:     symbol,
		RetryAfter: retryAfter,
		Message:    "upstream is rate limiting requests",
		Cause:      cause,
	}
}

// NotFound builds a not-found error for an exhausted symbol.
func NotFound(symbol string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Symbol:  symbol,
		Message: "no provider returned data; the symbol may be invalid or delisted",
	}
}

// Unavailable builds an unavailable error.
func Unavailable(provider, symbol string, cause error) *Error {
	return &Error{
		Kind:     KindUnavailable,
		Provider: provider,
		Symbol:   symbol,
		Message:  "upstream returned no usable data",
		Cause:    cause,
	}
}

// KindOf returns the kind of err. Typed errors win; otherwise the error text
// is scanned for known rate-limit signatures and everything else counts as
// unavailable. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return KindRateLimited
		}
	}
	return KindUnavailable
}

// IsRateLimited reports whether err classifies as a rate-limit failure.
func IsRateLimited(err error) bool { return KindOf(err) == KindRateLimited }

// RetryAfterOf extracts the retry-after hint from err, or zero.
func RetryAfterOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// ProviderOf extracts the provider name attached to err, or "".
func ProviderOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Provider
	}
	return ""
}
