package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"campusevents/internal/operations"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campus_events_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	registrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_events_registrations_total",
		Help: "Registration attempts by outcome.",
	}, []string{"result"})

	cancellationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_events_cancellations_total",
		Help: "Cancellation attempts by outcome.",
	}, []string{"result"})

	attendanceMarksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_events_attendance_marks_total",
		Help: "Attendance writes by method and outcome.",
	}, []string{"method", "result"})

	confirmationEmailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_events_confirmation_emails_total",
		Help: "Registration confirmation emails by outcome.",
	}, []string{"result"})

	analyticsCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_events_analytics_cache_total",
		Help: "Analytics cache lookups by outcome.",
	}, []string{"result"})
)

// outcome labels a workflow result with its error code, or "ok".
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return operations.AsError(err).Code
}
