// Package metrics holds the Prometheus collectors of the checkout engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AdmissionDecisions counts admission decisions by outcome.
	AdmissionDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_admission_decisions_total",
			Help: "Total number of admission decisions",
		},
		[]string{"decision"},
	)

	// StepCommits counts commit attempts per step and outcome.
	StepCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_step_commits_total",
			Help: "Total number of checkout step commit attempts",
		},
		[]string{"step", "outcome"},
	)

	// OrdersCommitted counts finalised orders.
	OrdersCommitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_orders_committed_total",
			Help: "Total number of committed orders",
		},
	)

	// SweepDeleted counts rows purged by the expiry sweeper.
	SweepDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sweep_deleted_total",
			Help: "Total number of expired rows deleted by the sweeper",
		},
		[]string{"table"},
	)

	// SweepErrors counts failed sweep queries.
	SweepErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sweep_errors_total",
			Help: "Total number of failed sweep queries",
		},
		[]string{"table"},
	)

	// NotificationsDispatched counts notification dispatches by kind and result.
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_notifications_dispatched_total",
			Help: "Total number of notification dispatch attempts",
		},
		[]string{"kind", "result"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		pattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		status := strconv.Itoa(rw.status)
		httpRequestsTotal.WithLabelValues(r.Method, pattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, pattern, status).Observe(time.Since(start).Seconds())
	})
}
