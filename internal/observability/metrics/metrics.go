package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradedock_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradedock_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradedock_auth_attempts_total",
		Help: "Login and registration attempts by outcome",
	}, []string{"kind", "outcome"})

	listingQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradedock_listing_query_duration_seconds",
		Help:    "Duration of listing reads by source",
		Buckets: prometheus.DefBuckets,
	}, []string{"listing", "source"})

	listingCacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradedock_listing_cache_operations_total",
		Help: "Listing cache lookups by result",
	}, []string{"cache", "result"})

	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradedock_mutations_total",
		Help: "Ownership-scoped mutations by resource, action and result",
	}, []string{"resource", "action", "result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAuthAttempt records a login or registration attempt
func ObserveAuthAttempt(kind, outcome string) {
	authAttempts.WithLabelValues(kind, outcome).Inc()
}

// ObserveListingQuery records how long a listing read took and where it was
// served from ("db" or "cache")
func ObserveListingQuery(listing, source string, duration time.Duration) {
	listingQueryDuration.WithLabelValues(listing, source).Observe(duration.Seconds())
}

// ObserveCacheLookup records a cache hit, miss or error
func ObserveCacheLookup(cache, result string) {
	listingCacheOps.WithLabelValues(cache, result).Inc()
}

// ObserveMutation records the result of an ownership-scoped write
func ObserveMutation(resource, action, result string) {
	mutations.WithLabelValues(resource, action, result).Inc()
}
