// Package metrics holds the Prometheus collectors of the client core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog client
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recofilms_catalog_requests_total",
			Help: "Backend requests by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: success, http_error, unreachable
	)

	CatalogDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recofilms_catalog_request_duration_seconds",
			Help:    "Backend request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recofilms_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recofilms_cache_lookups_total",
			Help: "Client-side cache lookups",
		},
		[]string{"cache", "result"}, // result: hit, miss
	)

	// Feeds
	FeedPagesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recofilms_feed_pages_applied_total",
			Help: "Page results applied to a feed",
		},
		[]string{"feed"},
	)

	FeedStaleDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recofilms_feed_stale_discarded_total",
			Help: "Page results discarded because their generation was superseded",
		},
		[]string{"feed"},
	)

	// Watch later
	WatchLaterEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recofilms_watch_later_entries",
			Help: "Movies currently in the watch-later list",
		},
	)

	EnrichmentFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recofilms_enrichment_failures_total",
			Help: "Best-effort detail fetches that failed",
		},
	)

	// Search
	DebounceFires = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recofilms_debounce_fires_total",
			Help: "Debounced queries that fired a search",
		},
		[]string{"query"},
	)
)

// ObserveCatalog records one backend request.
func ObserveCatalog(op, outcome string, start time.Time) {
	CatalogRequests.WithLabelValues(op, outcome).Inc()
	CatalogDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
