package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "securelife_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "securelife_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	contractOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "securelife_contract_operations_total",
		Help: "Contract operations by kind, operation and result",
	}, []string{"kind", "operation", "result"})

	contractOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "securelife_contract_operation_duration_seconds",
		Help:    "Duration of contract operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "operation"})

	cacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "securelife_cache_events_total",
		Help: "Cache hits, misses, errors and evictions by region",
	}, []string{"region", "event"})

	evictionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "securelife_cache_eviction_failures_total",
		Help: "Evictions that failed after a committed write",
	}, []string{"region"})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "securelife_notifications_total",
		Help: "Notifications dispatched by event and result",
	}, []string{"event", "result"})

	accessDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "securelife_access_denied_total",
		Help: "Operations rejected by the access policy",
	}, []string{"operation", "role"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveContractOperation records the outcome and duration of a contract operation
func ObserveContractOperation(kind, operation, result string, duration time.Duration) {
	contractOperations.WithLabelValues(kind, operation, result).Inc()
	contractOperationDuration.WithLabelValues(kind, operation).Observe(duration.Seconds())
}

// ObserveCacheEvent counts a cache event for a region
func ObserveCacheEvent(region, event string) {
	cacheEvents.WithLabelValues(region, event).Inc()
}

// ObserveEvictionFailure counts an eviction that could not be applied
func ObserveEvictionFailure(region string) {
	evictionFailures.WithLabelValues(region).Inc()
}

// ObserveNotification counts a notification attempt
func ObserveNotification(event, result string) {
	notifications.WithLabelValues(event, result).Inc()
}

// ObserveAccessDenied counts a policy rejection
func ObserveAccessDenied(operation, role string) {
	accessDenials.WithLabelValues(operation, role).Inc()
}
