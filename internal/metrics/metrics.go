// Package metrics exposes Prometheus instrumentation for outbound API
// traffic. Collectors are keyed by logical operation name rather than raw URL
// to keep label cardinality bounded:
//
//   - operation: stable client operation (e.g. "chat.send", "documents.list")
//   - method:    HTTP method verb (GET/POST/…)
//   - status:    numeric status code as a string, or "error" when the request
//     never produced a response (transport failure)
//
// All collectors are safe for concurrent use.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// apiReqs counts outbound requests by operation, method, and status.
	apiReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maven_api_requests_total",
			Help: "Total number of outbound API requests.",
		},
		[]string{"operation", "method", "status"},
	)

	// apiLat records request duration in seconds by operation and method.
	// Status is omitted to keep histogram cardinality lower.
	apiLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maven_api_request_duration_seconds",
			Help:    "Duration of outbound API requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "method"},
	)

	// apiInflight gauges the number of in-flight outbound requests.
	apiInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "maven_api_requests_inflight",
			Help: "Current number of in-flight outbound API requests.",
		},
	)
)

func init() {
	prometheus.MustRegister(apiReqs, apiLat, apiInflight)
}

// ObserveRequest records one completed outbound request. A status of 0 means
// no HTTP response was received and is reported under the "error" label.
func ObserveRequest(operation, method string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	apiReqs.WithLabelValues(operation, method, label).Inc()
	apiLat.WithLabelValues(operation, method).Observe(elapsed.Seconds())
}

// InflightInc marks one outbound request as started.
func InflightInc() { apiInflight.Inc() }

// InflightDec marks one outbound request as finished.
func InflightDec() { apiInflight.Dec() }
