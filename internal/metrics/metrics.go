// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Job metrics
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conciertapp_job_runs_total",
			Help: "Total number of enrichment job runs",
		},
		[]string{"job"},
	)

	JobItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conciertapp_job_items_total",
			Help: "Items processed by enrichment jobs, by outcome status",
		},
		[]string{"job", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conciertapp_job_duration_seconds",
			Help:    "Wall-clock duration of enrichment job runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"job"},
	)

	// Provider metrics
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conciertapp_provider_requests_total",
			Help: "Outbound requests to external providers, by result",
		},
		[]string{"provider", "result"}, // "success", "failure", "rejected", "throttled"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conciertapp_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conciertapp_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conciertapp_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conciertapp_cache_invalidations_total",
			Help: "Cache entries dropped by revalidation",
		},
		[]string{"kind"}, // "path", "tag"
	)
)
