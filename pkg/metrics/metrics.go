package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Database query latency (seconds)
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries above the slow threshold",
		},
	)

	// Ticks by resulting state: checked, unchecked, skipped
	HabitTickCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_tick_total",
			Help: "Total number of habit ticks stored",
		},
		[]string{"state", "source"}, // source: tap, check, note, form
	)

	RateLimitedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Total number of actions rejected by a rate limiter",
		},
		[]string{"action"},
	)

	LiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_sessions",
			Help: "Number of connected live UI sessions",
		},
	)

	PageRenderCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_render_total",
			Help: "Total number of rendered pages",
		},
		[]string{"page"},
	)
)

// RecordHTTPRequestDuration records one HTTP request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration records one database call.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery counts a slow query. The sql text is logged by the tracer, not labelled.
func IncrementSlowQuery(sql string, duration time.Duration) {
	SlowQueryCount.Inc()
}

// IncrementHabitTick counts a stored tick.
func IncrementHabitTick(state, source string) {
	HabitTickCount.WithLabelValues(state, source).Inc()
}

// IncrementRateLimited counts a rejected action.
func IncrementRateLimited(action string) {
	RateLimitedCount.WithLabelValues(action).Inc()
}

// IncrementPageRender counts a rendered page.
func IncrementPageRender(page string) {
	PageRenderCount.WithLabelValues(page).Inc()
}
