package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skillswap_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// LifecycleTransitions counts successful state transitions by entity and target state.
	LifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_lifecycle_transitions_total",
		Help: "Proposal, application and swap state transitions",
	}, []string{"entity", "to"})

	// NotificationsEmitted counts stored in-app notifications by type.
	NotificationsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_notifications_emitted_total",
		Help: "In-app notifications recorded by type",
	}, []string{"type"})

	// NotificationEmitFailures counts notifications that could not be stored.
	NotificationEmitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skillswap_notification_emit_failures_total",
		Help: "Notifications dropped because the store rejected them",
	})

	// EmailsTotal counts email attempts by kind (immediate, delayed) and outcome.
	EmailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_emails_total",
		Help: "Transactional emails by kind and outcome",
	}, []string{"kind", "outcome"})

	// DelayedEmailRuns counts delayed email job runs by outcome.
	DelayedEmailRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_delayed_email_runs_total",
		Help: "Delayed notification email job runs",
	}, []string{"outcome"})

	// ReputationCache counts reputation cache lookups by result (hit, miss, error).
	ReputationCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_reputation_cache_total",
		Help: "Reputation cache lookups",
	}, []string{"result"})

	// WebSocketConnectionsTotal is the gauge of active notification websocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skillswap_websocket_connections",
		Help: "Active notification WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_websocket_backpressure_drops_total",
		Help: "WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
