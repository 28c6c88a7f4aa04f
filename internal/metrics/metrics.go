// Package metrics exposes the Prometheus instrumentation for the access
// layer. A nil *Metrics is a valid no-op sink, so libraries never need to
// guard their counters.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors for one service instance.
type Metrics struct {
	reqCount    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	breakerTrip *prometheus.CounterVec
}

// New registers the collectors on reg and returns the sink.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reqCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketdata",
			Name:      "requests_total",
			Help:      "Facade operations by method and error flag.",
		}, []string{"method", "error"}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "marketdata",
			Name:      "request_duration_seconds",
			Help:      "Facade operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketdata",
			Name:      "cache_hits_total",
			Help:      "Cache hits by data kind.",
		}, []string{"kind"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketdata",
			Name:      "cache_misses_total",
			Help:      "Cache misses by data kind.",
		}, []string{"kind"}),
		breakerTrip: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketdata",
			Name:      "breaker_trips_total",
			Help:      "Circuit breaker failures recorded per provider.",
		}, []string{"provider"}),
	}
	reg.MustRegister(m.reqCount, m.reqDuration, m.cacheHits, m.cacheMisses, m.breakerTrip)
	return m
}

// Observe records one facade operation.
func (m *Metrics) Observe(method string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.reqCount.WithLabelValues(method, strconv.FormatBool(err != nil)).Inc()
	m.reqDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// CacheHit records a cache hit for a data kind.
func (m *Metrics) CacheHit(kind string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(kind).Inc()
}

// CacheMiss records a cache miss for a data kind.
func (m *Metrics) CacheMiss(kind string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(kind).Inc()
}

// BreakerTrip records a breaker failure for a provider.
func (m *Metrics) BreakerTrip(provider string) {
	if m == nil {
		return
	}
	m.breakerTrip.WithLabelValues(provider).Inc()
}
