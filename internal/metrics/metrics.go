// Package metrics exposes the Prometheus instrumentation for FanWave:
// cache efficiency, upstream call outcomes, and HTTP endpoint latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanwave_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanwave_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanwave_cache_evictions_total",
			Help: "Total number of cache entries evicted on expiry",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fanwave_cache_entries",
			Help: "Current number of cached responses",
		},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanwave_upstream_requests_total",
			Help: "Total number of platform API calls by operation and status",
		},
		[]string{"operation", "status"},
	)

	UpstreamRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanwave_upstream_retries_total",
			Help: "Total number of refresh-and-retry cycles after a 401",
		},
	)

	SessionRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanwave_session_refreshes_total",
			Help: "Total number of token refresh attempts by outcome",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fanwave_http_request_duration_seconds",
			Help:    "Duration of proxy HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
