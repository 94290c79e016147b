// Package metrics provides the Prometheus registry used by the catalog viewer.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, fanout, app) to keep the packages independent.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the catalog viewer.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler that exposes the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - catalog_api_requests_total{resource, status} (Counter): Remote API requests by resource and status
//   - catalog_api_request_duration_seconds{resource} (Histogram): Remote API request duration
//   - catalog_api_errors_total{class} (Counter): Errors by class (client, server, network, decode)
//
// Cache Metrics (pkg/cache):
//   - catalog_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - catalog_cache_misses_total (Counter): Cache misses
//   - catalog_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - catalog_304_responses_total (Counter): 304 Not Modified responses
//   - catalog_conditional_requests_total (Counter): Conditional requests sent
//   - catalog_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - catalog_rate_limit_wait_seconds (Histogram): Time spent waiting for a request token
//   - catalog_rate_limit_rejections_total (Counter): Waits aborted by context or burst size
//
// Fan-out Metrics (pkg/fanout):
//   - catalog_fanout_batches_total{policy, outcome} (Counter): Completed batches
//   - catalog_fanout_items_failed_total{policy} (Counter): Failed items
//
// Dataset Metrics (internal/app):
//   - catalog_dataset_entities (Gauge): Entities in the current dataset
//   - catalog_dataset_load_duration_seconds{outcome} (Histogram): Full load duration
//   - catalog_sessions_active (Gauge): Viewer sessions held in memory
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(catalog_cache_hits_total[5m])) /
//   (sum(rate(catalog_cache_hits_total[5m])) + sum(rate(catalog_cache_misses_total[5m])))
//
//   # Failed catalog loads
//   increase(catalog_fanout_batches_total{policy="all_or_nothing",outcome="failed"}[1h])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(catalog_api_request_duration_seconds_bucket[5m]))
