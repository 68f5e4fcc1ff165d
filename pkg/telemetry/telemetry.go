// Package telemetry holds the process prometheus collectors. The daemon
// serves them on /metrics via promhttp.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TriageRuns counts completed triage runs by terminal status.
	TriageRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentdesk_triage_runs_total",
		Help: "Completed triage workflow runs by terminal status.",
	}, []string{"status"})

	// StageFallbacks counts stages that fell back to the heuristic tier.
	StageFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentdesk_triage_stage_fallback_total",
		Help: "Triage stages served by the heuristic fallback tier.",
	}, []string{"stage"})

	// AutoSends counts autonomous-send gate outcomes.
	AutoSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentdesk_auto_send_gate_total",
		Help: "Autonomous-send gate evaluations by outcome (pass/hold).",
	}, []string{"outcome"})

	// CooldownTrips counts rate-limit responses that armed the reasoning
	// cooldown.
	CooldownTrips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agentdesk_reasoning_cooldown_trips_total",
		Help: "Rate-limited reasoning failures that armed the cooldown.",
	})

	// QueueEnqueued counts delivery jobs accepted by the queue.
	QueueEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agentdesk_delivery_enqueued_total",
		Help: "Delivery jobs enqueued.",
	})

	// QueueDropped counts enqueue failures (full or closed queue).
	QueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agentdesk_delivery_dropped_total",
		Help: "Delivery jobs dropped at enqueue.",
	})

	// QueueDepth tracks the current number of pending delivery jobs.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agentdesk_delivery_queue_depth",
		Help: "Pending delivery jobs.",
	})

	// Deliveries counts finished delivery attempts by outcome.
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentdesk_deliveries_total",
		Help: "Finished delivery attempts by outcome (sent/failed/skipped).",
	}, []string{"outcome"})
)
