// Package metrics declares the Prometheus collectors for the realtime core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connection registry metrics
var (
	// RegistryActiveTenants tracks the number of tenants with at least one live connection
	RegistryActiveTenants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_active_tenants",
			Help: "Number of tenants with at least one live realtime connection",
		},
	)

	// RegistryConnectedClients tracks total connected websocket clients
	RegistryConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_connected_clients_total",
			Help: "Total number of connected websocket clients across all tenants",
		},
	)

	// RegistryDroppedSends counts per-connection deliveries dropped because the send buffer was full
	RegistryDroppedSends = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_dropped_sends_total",
			Help: "Deliveries dropped because a client send buffer was full",
		},
	)

	// RegistryForcedEvictions counts connections closed via forced logout
	RegistryForcedEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_forced_evictions_total",
			Help: "Connections force-closed by an administrative disconnect",
		},
	)
)

// Websocket transport metrics
var (
	// WebSocketMessageSendDuration tracks time spent writing a frame
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "Time to write a message to a websocket client",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)

	// WebSocketPingFailures counts failed keepalive pings
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Keepalive pings that failed to send",
		},
	)

	// WebSocketAuthRejections counts connections closed for credential failures
	WebSocketAuthRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_auth_rejections_total",
			Help: "Websocket connections rejected or closed for auth failures, by reason",
		},
		[]string{"reason"},
	)
)

// Aggregator metrics
var (
	// ResolutionFailuresTotal counts mutation events whose owning employee could not be determined
	ResolutionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutation_resolution_failures_total",
			Help: "Mutation events dropped because the owning employee or tenant could not be resolved, by entity",
		},
		[]string{"entity"},
	)

	// AggregationDuration tracks full-record rebuild latency
	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "employee_aggregation_duration_seconds",
			Help:    "Time to rebuild an aggregate employee record",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// AggregationFailuresTotal counts failed record rebuilds
	AggregationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "employee_aggregation_failures_total",
			Help: "Aggregate employee record rebuilds that failed",
		},
	)
)

// Dispatcher metrics
var (
	// DispatchQueueDepth tracks the current broadcast job queue depth
	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_queue_depth",
			Help: "Broadcast jobs currently queued for the worker pool",
		},
	)

	// DispatchDroppedJobs counts jobs rejected because the queue was full
	DispatchDroppedJobs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_dropped_jobs_total",
			Help: "Broadcast jobs dropped because the dispatch queue was full",
		},
	)

	// DispatchBroadcastsTotal counts completed broadcasts by outcome
	DispatchBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_broadcasts_total",
			Help: "Mutation-triggered broadcasts by outcome",
		},
		[]string{"outcome"},
	)

	// DispatchCollapsedRebuilds counts rebuilds deduplicated by singleflight
	DispatchCollapsedRebuilds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_collapsed_rebuilds_total",
			Help: "Concurrent rebuilds of the same employee collapsed into one",
		},
	)
)

// Redis bridge metrics
var (
	// BridgePublishesTotal counts cross-instance publishes by status
	BridgePublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_publishes_total",
			Help: "Envelopes published to the cross-instance channel, by status",
		},
		[]string{"status"},
	)

	// BridgeRemoteBroadcasts counts envelopes received from other instances and re-broadcast locally
	BridgeRemoteBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_remote_broadcasts_total",
			Help: "Envelopes received from other instances and re-broadcast locally",
		},
	)

	// BridgeCircuitState tracks the publish circuit breaker state (0=closed, 1=half-open, 2=open)
	BridgeCircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_circuit_state",
			Help: "Redis publish circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// Database metrics
var (
	// DBQueryDuration tracks query latency by query name
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration by query name",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBErrorsTotal counts failed queries by query name
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database query errors by query name",
		},
		[]string{"query"},
	)
)
