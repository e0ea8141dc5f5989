// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package runcoordinator drives one pipeline run end-to-end: allocates a
// project, executes stages per the planner, persists per-stage outcome,
// handles cancellation/timeout, and returns an aggregate run record (spec
// §4.6).
package runcoordinator

import (
	"time"

	"github.com/reelforge/pipelinecore/internal/pipelineerr"
	"github.com/reelforge/pipelinecore/internal/stage"
)

// RunStatus is the aggregate outcome of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// Trigger distinguishes scheduled from manual run submissions (spec §4.7).
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// StageStatus is a per-stage terminal or in-flight state.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
	StageSkipped   StageStatus = "skipped"
	StageTimedOut  StageStatus = "timedOut"
	StageCancelled StageStatus = "cancelled"
)

// StageRecord is one stage's entry inside a RunRecord.
type StageRecord struct {
	Name             stage.Name    `json:"name"`
	Status           StageStatus   `json:"status"`
	StartedAt        *time.Time    `json:"startedAt,omitempty"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
	Attempts         int           `json:"attempts"`
	ErrorKind        pipelineerr.Kind `json:"errorKind,omitempty"`
	ErrorMessage     string        `json:"errorMessage,omitempty"`
	OutputContextRef string        `json:"outputContextRef,omitempty"`
}

// RunRecord is the persistent trace of a single end-to-end run (spec §3).
type RunRecord struct {
	ExecutionID string        `json:"executionId"`
	ProjectID   string        `json:"projectId"`
	Topic       string        `json:"topic"`
	Trigger     Trigger       `json:"trigger"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
	CancelledAt *time.Time    `json:"cancelledAt,omitempty"`
	Status      RunStatus     `json:"status"`
	Stages      []StageRecord `json:"stages"`
}

// StageIndex returns the position of name within Stages, or -1.
func (r *RunRecord) StageIndex(name stage.Name) int {
	for i, s := range r.Stages {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// StartRunOptions carries the caller-supplied knobs for a single run (spec §6).
type StartRunOptions struct {
	Topic          string
	TargetAudience string
	VideoDuration  int
	Trigger        Trigger
}
