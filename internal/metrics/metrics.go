// Package metrics provides Prometheus metrics for the library server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorelib_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scorelib_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	permissionChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorelib_permission_checks_total",
			Help: "Role checks performed before mutations",
		},
		[]string{"operation", "outcome"},
	)

	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorelib_mutations_total",
			Help: "Library mutations by operation and result",
		},
		[]string{"operation", "status"},
	)

	deletionFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scorelib_recursive_delete_failures_total",
			Help: "Individual document or blob deletions that failed during recursive deletes",
		},
	)

	liveViewsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scorelib_live_views_active",
			Help: "Open live tree views",
		},
	)

	conversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorelib_conversions_total",
			Help: "Notation conversion jobs by final status",
		},
		[]string{"status"},
	)
)

// RecordHTTPRequest records a finished request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordPermission records the outcome of a role check.
func RecordPermission(operation string, allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	permissionChecksTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordMutation records a mutation result.
func RecordMutation(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	mutationsTotal.WithLabelValues(operation, status).Inc()
}

func RecordDeletionFailures(n int) {
	deletionFailuresTotal.Add(float64(n))
}

func LiveViewOpened() { liveViewsActive.Inc() }
func LiveViewClosed() { liveViewsActive.Dec() }

func RecordConversion(status string) {
	conversionsTotal.WithLabelValues(status).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
