// Package metrics declares the Prometheus instruments of the wall.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Moderation Metrics
var (
	// MessagesSubmittedTotal tracks accepted submissions by section
	MessagesSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wall_messages_submitted_total",
			Help: "Total messages accepted into the pending queue by section",
		},
		[]string{"section"},
	)

	// ModerationActionsTotal tracks moderator commands by action and result
	ModerationActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wall_moderation_actions_total",
			Help: "Total moderation commands by action (approve/reject/delete/...) and result (ok/error)",
		},
		[]string{"action", "result"},
	)

	// SubmissionsDroppedTotal tracks realtime submissions that never reached the store
	SubmissionsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wall_submissions_dropped_total",
			Help: "Total realtime submissions dropped by reason (invalid/throttled)",
		},
		[]string{"reason"},
	)

	// MessagesStored tracks the number of messages currently held per section
	MessagesStored = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wall_messages_stored",
			Help: "Messages currently held in memory by section",
		},
		[]string{"section"},
	)
)

// Broadcast Metrics
var (
	// EventsPublishedTotal tracks events handed to the bus by kind
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wall_events_published_total",
			Help: "Total realtime events published by kind",
		},
		[]string{"event"},
	)

	// EventPublishDuration tracks how long a publish waits for the hub hand-off
	EventPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wall_event_publish_duration_seconds",
			Help:    "Time from bus publish to hub hand-off in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)

	// HubMailboxOverflowTotal tracks events a role cell could not accept
	HubMailboxOverflowTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wall_hub_mailbox_overflow_total",
			Help: "Total events dropped because a role mailbox was full; the role sessions are closed to resync",
		},
	)

	// ExportFailuresTotal tracks events the AMQP exporter failed to deliver
	ExportFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wall_export_failures_total",
			Help: "Total events not exported by reason (queue_full/publish_error/circuit_open)",
		},
		[]string{"reason"},
	)

	// BusPanicsTotal tracks recovered panics in the bus consumer
	BusPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wall_bus_panics_total",
			Help: "Total panics recovered while handling bus messages",
		},
	)
)

// WebSocket Metrics
var (
	// WebSocketConnectionsCurrent tracks current active WebSocket connections
	WebSocketConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wall_websocket_connections_current",
			Help: "Current number of active WebSocket connections",
		},
	)

	// WebSocketConnectionsTotal tracks connection attempts by role and result
	WebSocketConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wall_websocket_connections_total",
			Help: "Total WebSocket connection attempts by role and result (success/error/rejected)",
		},
		[]string{"role", "result"},
	)

	// WebSocketConnectionsRejected tracks rejected connection attempts by reason
	WebSocketConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wall_websocket_connections_rejected_total",
			Help: "Total WebSocket connections rejected by reason (rate_limit/per_ip_limit/global_limit)",
		},
		[]string{"reason"},
	)

	// WebSocketWriteFailures tracks frames or pings that could not be written
	WebSocketWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wall_websocket_write_failures_total",
			Help: "Total WebSocket writes (frames and pings) that failed",
		},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wall_build_info",
			Help: "Build information with version and commit labels (value is always 1)",
		},
		[]string{"version", "commit"},
	)
)

// Result maps an operation error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
