// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes the pipeline orchestration core's Prometheus
// instrumentation: stage duration, wave and retry counts, quality-gate
// decisions, and scheduler throttling.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pipelinecore"

var (
	// StageDuration observes how long one stage invocation attempt took,
	// labeled by stage name and terminal outcome.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of a single stage adapter invocation attempt.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage", "status"},
	)

	// StageRetries counts retry attempts issued per stage, labeled by the
	// error kind that triggered the retry.
	StageRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_retries_total",
			Help:      "Total retry attempts issued for a stage.",
		},
		[]string{"stage", "error_kind"},
	)

	// WaveDuration observes how long one Dependency Planner wave took to
	// complete, labeled by its index.
	WaveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wave_duration_seconds",
			Help:      "Duration of one dependency-planner wave's execution.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"wave_index"},
	)

	// RunsTotal counts sealed runs, labeled by their aggregate status.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total runs sealed by the Run Coordinator, by status.",
		},
		[]string{"status"},
	)

	// QualityGateDecisions counts gate evaluations, labeled by outcome.
	QualityGateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quality_gate_decisions_total",
			Help:      "Total Quality Gate evaluations, by pass/reject outcome.",
		},
		[]string{"outcome"},
	)

	// SchedulerTicks counts scheduler tick outcomes, labeled by audit
	// outcome (started, throttled, no_eligible_topic).
	SchedulerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_ticks_total",
			Help:      "Total scheduler tick decisions, by audit outcome.",
		},
		[]string{"outcome"},
	)
)

// ObserveStage records one stage invocation attempt's duration and outcome.
func ObserveStage(stageName, status string, d time.Duration) {
	StageDuration.WithLabelValues(stageName, status).Observe(d.Seconds())
}

// ObserveWave records one wave's total execution duration.
func ObserveWave(waveIndex string, d time.Duration) {
	WaveDuration.WithLabelValues(waveIndex).Observe(d.Seconds())
}

// RecordRetry increments the retry counter for a stage/error-kind pair.
func RecordRetry(stageName, errorKind string) {
	StageRetries.WithLabelValues(stageName, errorKind).Inc()
}

// RecordRun increments the sealed-run counter for a terminal status.
func RecordRun(status string) {
	RunsTotal.WithLabelValues(status).Inc()
}

// RecordQualityGateDecision increments the gate-decision counter.
func RecordQualityGateDecision(outcome string) {
	QualityGateDecisions.WithLabelValues(outcome).Inc()
}

// RecordSchedulerTick increments the scheduler-tick counter.
func RecordSchedulerTick(outcome string) {
	SchedulerTicks.WithLabelValues(outcome).Inc()
}
