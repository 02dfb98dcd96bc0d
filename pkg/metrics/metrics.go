// Package metrics provides the Prometheus registry and scrape handler for the
// Classroom client. All metrics are defined in their respective packages
// (classroom, ratelimit) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the Classroom client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer matching Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler serving all registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/classroom):
//   - classroom_requests_total{resource, status} (Counter): Requests by resource and HTTP status
//   - classroom_request_duration_seconds{resource} (Histogram): Duration of each attempt; retries are observed separately
//   - classroom_errors_total{kind} (Counter): Failed operations by classified error kind
//   - classroom_list_pages{resource} (Histogram): Pages fetched per list operation
//
// Retry Metrics (pkg/classroom):
//   - classroom_retries_total{resource} (Counter): Retry attempts by resource
//   - classroom_retry_exhausted_total{resource} (Counter): Calls that used up all retries
//
// Throttle Metrics (pkg/ratelimit):
//   - classroom_rate_limit_exhausted_total{resource} (Counter): Throttled calls recorded
//   - classroom_rate_limit_last_exhausted_timestamp_seconds (Gauge): Unix time of the latest throttled call
//
// Example Prometheus Queries:
//
//   # Throttle rate per resource
//   sum by (resource) (rate(classroom_rate_limit_exhausted_total[5m]))
//
//   # Request Error Rate
//   rate(classroom_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(classroom_request_duration_seconds_bucket[5m]))
//
//   # Result sets close to the page limit
//   histogram_quantile(0.99, rate(classroom_list_pages_bucket[1h])) > 80
