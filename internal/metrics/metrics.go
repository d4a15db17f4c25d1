// Package metrics registers the core's Prometheus instrumentation,
// promoting prometheus/client_golang from a transitive dependency to
// direct use for an actual /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationsCreated counts successful reservation creations.
	ReservationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nsi_aura_reservations_created_total",
		Help: "Total reservations created.",
	})

	// FSMTransitions counts every successful (event) transition, labeled
	// by event name.
	FSMTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nsi_aura_fsm_transitions_total",
		Help: "Total successful fsm transitions, by event.",
	}, []string{"event"})

	// FSMTransitionRefused counts illegal transition attempts, labeled by
	// event and the state they were refused from.
	FSMTransitionRefused = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nsi_aura_fsm_transition_refused_total",
		Help: "Total transitions refused as illegal, by event and from-state.",
	}, []string{"event", "from"})

	// NSIRequestDuration observes outbound NSI call latency, labeled by
	// the message name (reserve, reserveCommit, ...).
	NSIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nsi_aura_nsi_request_duration_seconds",
		Help:    "Outbound NSI request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"message"})

	// TopologyPollDuration observes one full DDS poll's wall time.
	TopologyPollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nsi_aura_topology_poll_duration_seconds",
		Help:    "Topology poll wall-clock duration.",
		Buckets: prometheus.DefBuckets,
	})

	// DispatcherQueueDepth is a point-in-time gauge of queued-but-not-yet-
	// started dispatcher jobs.
	DispatcherQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nsi_aura_dispatcher_queue_depth",
		Help: "Number of jobs currently queued in the dispatcher.",
	})
)
