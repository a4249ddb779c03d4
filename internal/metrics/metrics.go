package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peerlink_connection_transitions_total",
		Help: "Connection workflow transitions by action (sent, accepted, rejected, removed).",
	}, []string{"action"})

	ProjectEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peerlink_project_events_total",
		Help: "Project workflow events by kind (created, updated, deleted, replaced, applied, selected, deselected).",
	}, []string{"event"})

	SweepDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peerlink_connection_sweep_deleted_total",
		Help: "Connection requests removed by the daily sweep, by reason.",
	}, []string{"reason"})

	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peerlink_connection_sweep_runs_total",
		Help: "Sweep executions by outcome (ok, failed, skipped).",
	}, []string{"outcome"})
)
