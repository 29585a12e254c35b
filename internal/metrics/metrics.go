// Package metrics holds the Prometheus collectors for live game sessions.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for write operations.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
)

// ClockTicks is the counter for processed clock ticks.
var ClockTicks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "scorekeeper_clock_ticks_total",
		Help: "Total number of game clock ticks processed",
	},
)

// SyncFailures is the counter for failed fire-and-forget backend syncs.
var SyncFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scorekeeper_sync_failures_total",
		Help: "Total number of non-critical backend sync failures",
	},
	[]string{"operation"},
)

// SyncDropped is the counter for syncs dropped because the queue was full.
var SyncDropped = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "scorekeeper_sync_dropped_total",
		Help: "Total number of time syncs dropped because the sync queue was full",
	},
)

// Writes is the counter for critical writes by operation and outcome.
var Writes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scorekeeper_writes_total",
		Help: "Total number of critical writes by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

// PermissionDenials is the counter for locally denied actions.
var PermissionDenials = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scorekeeper_permission_denials_total",
		Help: "Total number of actions denied by the permission resolver",
	},
	[]string{"permission"},
)

// PlusMinusAttributions is the counter for score deltas attributed to players.
var PlusMinusAttributions = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "scorekeeper_plus_minus_attributions_total",
		Help: "Total number of score deltas attributed to on-court players",
	},
)

// OpenSessions is the gauge of currently open game sessions.
var OpenSessions = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "scorekeeper_open_sessions",
		Help: "Number of currently open game sessions",
	},
)

// HTTPRequests is the counter for local API requests by route and status class.
var HTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scorekeeper_http_requests_total",
		Help: "Total number of local API requests by method, route and status",
	},
	[]string{"method", "route", "status"},
)

// StreamClients is the gauge of connected SSE clients.
var StreamClients = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "scorekeeper_stream_clients",
		Help: "Number of connected event stream clients",
	},
)

// StreamDropped is the counter for events not delivered to a slow stream client.
var StreamDropped = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "scorekeeper_stream_events_dropped_total",
		Help: "Total number of events dropped because a stream client's buffer was full",
	},
)

// RegisterMetrics registers all collectors with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(ClockTicks)
	reg.MustRegister(SyncFailures)
	reg.MustRegister(SyncDropped)
	reg.MustRegister(Writes)
	reg.MustRegister(PermissionDenials)
	reg.MustRegister(PlusMinusAttributions)
	reg.MustRegister(OpenSessions)
	reg.MustRegister(HTTPRequests)
	reg.MustRegister(StreamClients)
	reg.MustRegister(StreamDropped)
}

// RecordTick increments the clock tick counter.
func RecordTick() {
	ClockTicks.Inc()
}

// RecordSyncFailure increments the sync failure counter for an operation.
func RecordSyncFailure(operation string) {
	SyncFailures.WithLabelValues(operation).Inc()
}

// RecordSyncDropped increments the dropped sync counter.
func RecordSyncDropped() {
	SyncDropped.Inc()
}

// RecordWrite increments the write counter.
// Parameters:
//   - operation: the backend write, e.g. "substitute", "set_starters"
//   - outcome: use Outcome* constants
func RecordWrite(operation, outcome string) {
	Writes.WithLabelValues(operation, outcome).Inc()
}

// RecordPermissionDenied increments the denial counter for a permission.
func RecordPermissionDenied(permission string) {
	PermissionDenials.WithLabelValues(permission).Inc()
}

// RecordAttribution increments the plus/minus attribution counter.
func RecordAttribution() {
	PlusMinusAttributions.Inc()
}

// RecordHTTPRequest increments the request counter. The status is bucketed
// into its class ("2xx", "4xx", ...) to keep cardinality bounded.
func RecordHTTPRequest(method, route string, status int) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status/100)+"xx").Inc()
}
