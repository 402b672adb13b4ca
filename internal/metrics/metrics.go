// Package metrics provides Prometheus instrumentation for the orchestrator
// core: the concurrency gate, provider invocations, and broadcast fan-out.
// These are the ambient operational counters a supervisor process would
// scrape; they are distinct from the NDJSON-derived routed_summary in
// package supervisor, which is a pure function over the event log rather
// than a live gauge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Concurrency gate metrics.
var (
	GateInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "multiagents_gate_in_flight",
		Help: "Number of one-shot provider invocations currently holding a gate permit.",
	})

	GateQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "multiagents_gate_queue_depth",
		Help: "Number of one-shot requests waiting for a gate permit.",
	})

	GateWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "multiagents_gate_wait_seconds",
		Help:    "Time spent waiting for a gate permit before dispatch.",
		Buckets: prometheus.DefBuckets,
	})
)

// Provider invocation metrics.
var (
	OneShotTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "multiagents_oneshot_total",
		Help: "Total one-shot provider invocations by outcome.",
	}, []string{"provider_key", "outcome"})

	OneShotDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "multiagents_oneshot_duration_seconds",
		Help:    "One-shot provider invocation duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider_key"})
)

// Session/REPL metrics.
var (
	ActiveSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "multiagents_active_sessions",
		Help: "Number of sessions currently in active status, by provider.",
	}, []string{"provider_key"})

	ActiveREPLWindows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "multiagents_active_repl_windows",
		Help: "Number of multiplexer windows currently hosting a REPL agent.",
	})
)

// Broadcast metrics.
var (
	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "multiagents_broadcasts_total",
		Help: "Total broadcasts dispatched, by mode and overall outcome.",
	}, []string{"mode", "outcome"})

	BroadcastTargets = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "multiagents_broadcast_targets",
		Help:    "Number of targets per broadcast.",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
	})
)
