// Package metrics exposes the Prometheus registry of the catalog.
// Metrics are defined in the packages that own them (client, cache,
// browse, ratelimit, server) and registered via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the catalog.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back everything registered on Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Upstream Request Metrics (pkg/client):
//   - dino_client_requests_total{endpoint, status} (Counter): Requests to the query API
//   - dino_client_request_duration_seconds{endpoint} (Histogram): Request duration
//   - dino_client_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - dino_client_retries_total{error_class} (Counter): Retry attempts
//   - dino_client_retry_backoff_seconds{error_class} (Histogram): Backoff duration
//   - dino_client_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - dino_cache_hits_total{layer} (Counter): Hits by layer ("memory", "redis")
//   - dino_cache_misses_total{layer} (Counter): Misses by layer
//   - dino_cache_evictions_total{layer} (Counter): Entries removed by sweep, clear or expiry
//   - dino_cache_errors_total{operation} (Counter): Redis operation errors
//   - dino_304_responses_total (Counter): Conditional GETs answered with 304
//
// Browse Metrics (pkg/browse):
//   - dino_browse_fetches_total{kind, outcome} (Counter): Page fetches by kind
//     (authoritative, prefetch) and outcome (cache, network, error, discarded)
//   - dino_browse_debounced_edits_total (Counter): Filter edits absorbed by the debounce
//
// Rate Limit Metrics (pkg/ratelimit):
//   - dino_rate_limit_allowed_total (Counter): Requests admitted
//   - dino_rate_limit_blocks_total (Counter): Requests rejected with 429
//   - dino_rate_limit_errors_total (Counter): Checks that failed open
//
// HTTP Metrics (internal/server):
//   - dino_http_requests_total{route, method, status} (Counter): API requests served
//   - dino_http_request_duration_seconds{route} (Histogram): Handler latency
//
// Example Prometheus Queries:
//
//   # Page cache hit rate in browse sessions
//   sum(rate(dino_cache_hits_total{layer="memory"}[5m])) /
//   (sum(rate(dino_cache_hits_total{layer="memory"}[5m])) + sum(rate(dino_cache_misses_total{layer="memory"}[5m])))
//
//   # Share of prefetches that were never needed
//   rate(dino_browse_fetches_total{kind="prefetch"}[5m])
//
//   # P95 API latency
//   histogram_quantile(0.95, rate(dino_http_request_duration_seconds_bucket[5m]))
