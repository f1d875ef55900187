// Package metrics holds the Prometheus collectors for marquee.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marquee_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// TMDBRequestsTotal counts outbound metadata API calls. Outcome is one of
	// "ok", "status", "transport", "rejected".
	TMDBRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_tmdb_requests_total",
			Help: "Total number of TMDB API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	MovieCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marquee_movie_cache_hits_total",
			Help: "Search results already present in the local movie cache",
		},
	)

	MovieCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marquee_movie_cache_misses_total",
			Help: "Search results that required a detail lookup",
		},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marquee_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	HistoryEntriesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marquee_history_entries_written_total",
			Help: "Search history rows written",
		},
	)
)
