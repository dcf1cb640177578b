// Package metrics exposes the Prometheus registry and HTTP handler for
// the market-data proxy. All metrics are defined in their respective
// packages (upstream, cache) to maintain modularity and avoid circular
// dependencies.
//
// This package provides the scrape endpoint and reference documentation
// for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the proxy.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - marketdata_cache_hits_total{backend} (Counter): Cache hits by backend
//   - marketdata_cache_misses_total{backend} (Counter): Cache misses by backend
//   - marketdata_cache_writes_total{backend} (Counter): Successful cache writes
//   - marketdata_cache_errors_total{backend, operation} (Counter): Cache operation errors
//
// Upstream Request Metrics (pkg/upstream):
//   - marketdata_upstream_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - marketdata_upstream_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//
// Retry Metrics (pkg/upstream):
//   - marketdata_upstream_retries_total{error_class} (Counter): Retry attempts by error class
//   - marketdata_upstream_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - marketdata_upstream_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(marketdata_cache_hits_total[5m])) /
//   (sum(rate(marketdata_cache_hits_total[5m])) + sum(rate(marketdata_cache_misses_total[5m])))
//
//   # Upstream Error Rate
//   rate(marketdata_upstream_requests_total{status!~"2.."}[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(marketdata_upstream_request_duration_seconds_bucket[5m]))
