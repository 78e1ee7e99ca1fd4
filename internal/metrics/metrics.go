// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics registers Prometheus instruments for the gateway.
// See docs/ARCHITECTURE § Observability.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache event labels recorded by the gateway.
const (
	CacheHit   = "hit"
	CacheStale = "stale_hit"
	CacheMiss  = "miss"
)

// Fetch outcome labels recorded by the gateway.
const (
	FetchOK      = "ok"
	FetchTimeout = "timeout"
	FetchFailed  = "failed"
)

// Gateway holds the gateway's Prometheus instruments. A nil *Gateway is
// valid and records nothing, so tests and library embedders can skip
// registration entirely.
type Gateway struct {
	cacheEvents   *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
}

// NewGateway registers the gateway instruments with reg.
func NewGateway(reg prometheus.Registerer) *Gateway {
	g := &Gateway{
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compare_engine",
			Subsystem: "gateway",
			Name:      "cache_events_total",
			Help:      "Cache lookups by source and outcome (hit, stale_hit, miss).",
		}, []string{"source", "event"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compare_engine",
			Subsystem: "gateway",
			Name:      "fetches_total",
			Help:      "Upstream fetch attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "compare_engine",
			Subsystem: "gateway",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch latency by source.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}
	reg.MustRegister(g.cacheEvents, g.fetches, g.fetchDuration)
	return g
}

// CacheEvent records one cache lookup outcome.
func (g *Gateway) CacheEvent(source, event string) {
	if g == nil {
		return
	}
	g.cacheEvents.WithLabelValues(source, event).Inc()
}

// Fetch records one upstream fetch attempt and its latency.
func (g *Gateway) Fetch(source, outcome string, elapsed time.Duration) {
	if g == nil {
		return
	}
	g.fetches.WithLabelValues(source, outcome).Inc()
	g.fetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}
