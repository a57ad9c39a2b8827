package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// DB query latency in seconds.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"operation", "table"},
	)

	// MQ consume latency in milliseconds.
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"routing_key", "queue"},
	)

	// Public form submissions accepted by the API.
	IntakeSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_submissions_total",
			Help: "Public intake and contact form submissions",
		},
		[]string{"form", "status"}, // status: accepted, rejected, rate_limited
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notification emails sent by the worker",
		},
		[]string{"routing_key", "status"},
	)

	// Dashboard tab loads, by tab and outcome.
	DashboardTabLoad = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_tab_load_seconds",
			Help:    "Time spent loading a dashboard tab from the API",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"tab", "status"}, // status: ok, error, stale
	)

	DashboardStaleResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_stale_responses_total",
			Help: "API responses discarded because a newer request was dispatched",
		},
		[]string{"store"},
	)

	DashboardRefreshRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_refresh_runs_total",
			Help: "Auto-refresh ticks per outcome",
		},
		[]string{"outcome"}, // refreshed, skipped_dirty, skipped_idle, failed
	)
)

// RecordHTTPRequestDuration records one HTTP request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration records one DB query.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery counts one slow query.
func IncrementSlowQuery(operation, table string) {
	SlowQueryCount.WithLabelValues(operation, table).Inc()
}

// RecordMQConsumeLatency records how long a handler took for one delivery.
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// IncrementIntake counts one public form submission.
func IncrementIntake(form, status string) {
	IntakeSubmissions.WithLabelValues(form, status).Inc()
}

// IncrementNotification counts one notification attempt.
func IncrementNotification(routingKey, status string) {
	NotificationsSent.WithLabelValues(routingKey, status).Inc()
}

// RecordTabLoad records one dashboard tab load.
func RecordTabLoad(tab, status string, duration time.Duration) {
	DashboardTabLoad.WithLabelValues(tab, status).Observe(duration.Seconds())
}

// IncrementStaleResponse counts one discarded stale response.
func IncrementStaleResponse(store string) {
	DashboardStaleResponses.WithLabelValues(store).Inc()
}

// IncrementRefresh counts one auto-refresh outcome.
func IncrementRefresh(outcome string) {
	DashboardRefreshRuns.WithLabelValues(outcome).Inc()
}
