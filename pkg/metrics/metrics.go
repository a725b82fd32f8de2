// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// MessagesTotal tracks messages persisted, by sender role.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total chat messages persisted",
		},
		[]string{"tenant_id", "role"},
	)

	// SessionTransitionsTotal tracks session lifecycle transitions.
	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_session_transitions_total",
			Help: "Total session lifecycle transitions",
		},
		[]string{"tenant_id", "to_status"},
	)

	// TokenDebitsTotal tracks successful ledger debits.
	TokenDebitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_debits_total",
			Help: "Total successful token debits",
		},
		[]string{"tenant_id"},
	)

	// TokenCreditsTotal tracks ledger credits, by transaction type.
	TokenCreditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_credits_total",
			Help: "Total token credits",
		},
		[]string{"tenant_id", "type"},
	)

	// InsufficientBalanceTotal tracks sends rejected for lack of tokens.
	InsufficientBalanceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_insufficient_balance_total",
			Help: "Total operations rejected with insufficient balance",
		},
		[]string{"tenant_id"},
	)

	// FallbackScheduled tracks armed AI fallback schedules.
	FallbackScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_fallback_scheduled_total",
			Help: "Total AI fallback schedules armed",
		},
	)

	// FallbackMessagesTotal tracks emitted AI placeholder messages.
	FallbackMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_fallback_messages_total",
			Help: "Total AI placeholder messages emitted",
		},
	)

	// FallbackSuppressedTotal tracks schedules abandoned before finishing.
	FallbackSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_fallback_suppressed_total",
			Help: "Total AI fallback schedules suppressed or cancelled",
		},
	)

	// NotifyFailuresTotal tracks best-effort publishes that failed.
	NotifyFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_publish_failures_total",
			Help: "Total event publishes that failed",
		},
		[]string{"event"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}
