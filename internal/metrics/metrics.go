// Package metrics defines Prometheus metrics for performed requests.
//
// All metrics are registered with the Prometheus default registry.
//
// Metric naming follows Prometheus conventions:
//   - coreapi_ prefix for all metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// Status labels for tasks that ended without an HTTP response.
const (
	StatusBuildError     = "build_error"
	StatusTransportError = "transport_error"
	StatusCanceled       = "canceled"
)

var (
	// RequestsTotal counts completed tasks by HTTP method and status.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coreapi_requests_total",
			Help: "Total number of completed API tasks by method and status.",
		},
		[]string{"method", "status"},
	)

	// RequestDurationSeconds is a histogram of transport time by method.
	RequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coreapi_request_duration_seconds",
			Help:    "Duration of API requests in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)

	// InFlightRequests is the number of transport operations currently running.
	InFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coreapi_in_flight_requests",
			Help: "Number of API requests currently in flight.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDurationSeconds,
		InFlightRequests,
	)
}

// RecordRequestStart marks a transport operation as started.
func RecordRequestStart() {
	InFlightRequests.Inc()
}

// RecordRequestComplete records a finished transport operation.
func RecordRequestComplete(method string, outcome coreapi.Outcome, duration time.Duration) {
	InFlightRequests.Dec()
	RequestsTotal.WithLabelValues(method, StatusLabel(outcome)).Inc()
	RequestDurationSeconds.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordBuildFailure records a task that failed before any network I/O.
func RecordBuildFailure(method string) {
	RequestsTotal.WithLabelValues(method, StatusBuildError).Inc()
}

// StatusLabel returns the HTTP status code of outcome, or the failure class
// when no response was received.
func StatusLabel(outcome coreapi.Outcome) string {
	switch {
	case outcome.Response != nil:
		return strconv.Itoa(outcome.Response.StatusCode)
	case coreapi.IsBuildError(outcome.Err):
		return StatusBuildError
	case coreapi.IsCanceled(outcome.Err):
		return StatusCanceled
	default:
		return StatusTransportError
	}
}
