// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package runcoordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reelforge/pipelinecore/internal/backoffx"
	"github.com/reelforge/pipelinecore/internal/idgen"
	"github.com/reelforge/pipelinecore/internal/log"
	"github.com/reelforge/pipelinecore/internal/metrics"
	"github.com/reelforge/pipelinecore/internal/pipelineerr"
	"github.com/reelforge/pipelinecore/internal/planner"
	"github.com/reelforge/pipelinecore/internal/project"
	"github.com/reelforge/pipelinecore/internal/stage"
	"github.com/reelforge/pipelinecore/internal/telemetry"
)

// Config carries the Run Coordinator's tunables (spec §4.6, §6).
type Config struct {
	RunTimeout   time.Duration
	CancelGrace  time.Duration
	DefaultRetry stage.RetryPolicy
}

// DefaultConfig matches the spec's suggested defaults.
func DefaultConfig() Config {
	return Config{
		RunTimeout:   15 * time.Minute,
		CancelGrace:  5 * time.Second,
		DefaultRetry: stage.DefaultRetryPolicy(),
	}
}

// Coordinator drives one run end-to-end: allocates a project, executes the
// fixed stage DAG wave by wave, and persists the aggregate outcome (spec
// §4.6).
type Coordinator struct {
	projects *project.Registry
	stages   *stage.Registry
	runs     RunStore
	cfg      Config

	mu        sync.Mutex
	cancelFns map[string]context.CancelFunc
}

// New constructs a Coordinator over the given component registries and store.
func New(projects *project.Registry, stages *stage.Registry, runs RunStore, cfg Config) *Coordinator {
	return &Coordinator{
		projects:  projects,
		stages:    stages,
		runs:      runs,
		cfg:       cfg,
		cancelFns: make(map[string]context.CancelFunc),
	}
}

// StartRun allocates a project, runs the fixed DAG to completion (or
// failure/cancellation), and returns the sealed RunRecord (spec §4.6 steps
// 1-7). The returned error is non-nil only for failures that prevent a
// RunRecord from being produced at all (e.g. project allocation failure);
// stage failures are reflected in the record's Status instead.
func (c *Coordinator) StartRun(ctx context.Context, opts StartRunOptions) (*RunRecord, error) {
	projectID, err := c.projects.CreateProject(ctx, opts.Topic)
	if err != nil {
		return nil, err
	}

	executionID := idgen.NewExecutionID()
	runCtx := log.ContextWithJobID(ctx, executionID)
	logger := log.WithComponentFromContext(runCtx, "runcoordinator")

	record := &RunRecord{
		ExecutionID: executionID,
		ProjectID:   projectID,
		Topic:       opts.Topic,
		Trigger:     opts.Trigger,
		StartedAt:   time.Now(),
		Status:      RunRunning,
	}
	for _, name := range planner.AllStages() {
		record.Stages = append(record.Stages, StageRecord{Name: name, Status: StagePending})
	}
	if err := c.runs.Create(runCtx, record); err != nil {
		return nil, err
	}

	runTimeout := c.cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = DefaultConfig().RunTimeout
	}
	execCtx, cancel := context.WithTimeout(runCtx, runTimeout)
	c.mu.Lock()
	c.cancelFns[executionID] = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.cancelFns, executionID)
		c.mu.Unlock()
		cancel()
	}()

	failed := make(map[stage.Name]bool)
	skipped := make(map[stage.Name]bool)
	var recordMu sync.Mutex

	for waveIndex, wave := range planner.Plan() {
		if execCtx.Err() != nil {
			c.markRemainingCancelled(runCtx, record, &recordMu, wave.Stages)
			continue
		}

		waveStages := make([]string, len(wave.Stages))
		for i, n := range wave.Stages {
			waveStages[i] = string(n)
		}
		waveCtx, waveSpan := telemetry.StartWave(execCtx, executionID, projectID, waveIndex, waveStages)
		waveStarted := time.Now()

		g, gCtx := errgroup.WithContext(waveCtx)
		for _, name := range wave.Stages {
			name := name
			if c.anyDependencyUnsuccessful(name, failed, skipped) {
				skipped[name] = true
				c.updateStage(runCtx, record, &recordMu, name, func(sr *StageRecord) {
					sr.Status = StageSkipped
				})
				continue
			}

			adapter, found := c.stages.Lookup(name)
			if !found {
				failed[name] = true
				c.updateStage(runCtx, record, &recordMu, name, func(sr *StageRecord) {
					sr.Status = StageFailed
					sr.ErrorKind = pipelineerr.Config
					sr.ErrorMessage = "no adapter registered for stage"
				})
				continue
			}

			g.Go(func() error {
				c.runStage(gCtx, runCtx, record, &recordMu, executionID, projectID, adapter, failed, skipped)
				return nil
			})
		}
		_ = g.Wait()
		waveSpan.End()
		metrics.ObserveWave(fmt.Sprintf("%d", waveIndex), time.Since(waveStarted))
	}

	record.Status = c.aggregateStatus(record)
	metrics.RecordRun(string(record.Status))
	now := time.Now()
	record.CompletedAt = &now
	if execCtx.Err() == context.DeadlineExceeded || execCtx.Err() == context.Canceled {
		record.CancelledAt = &now
	}
	if err := c.runs.Update(runCtx, record); err != nil {
		return record, err
	}
	logger.Info().Str("execution_id", executionID).Str("status", string(record.Status)).Msg("run complete")
	return record, nil
}

// CancelRun requests cancellation of an in-flight run. The run's context is
// cancelled once the configured grace period has elapsed, and running stages
// observe ctx.Done() from then on; nothing signals them during the grace
// period itself.
func (c *Coordinator) CancelRun(executionID string) {
	c.mu.Lock()
	cancel, ok := c.cancelFns[executionID]
	c.mu.Unlock()
	if !ok {
		return
	}
	grace := c.cfg.CancelGrace
	if grace <= 0 {
		grace = DefaultConfig().CancelGrace
	}
	go func() {
		time.Sleep(grace)
		cancel()
	}()
}

// activeExecutionIDs lists executionIds with an in-flight StartRun call; it
// exists for tests that need to cancel a run without already knowing its id.
func (c *Coordinator) activeExecutionIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.cancelFns))
	for id := range c.cancelFns {
		out = append(out, id)
	}
	return out
}

func (c *Coordinator) anyDependencyUnsuccessful(name stage.Name, failed, skipped map[stage.Name]bool) bool {
	for _, dep := range planner.DependenciesOf(name) {
		if failed[dep] || skipped[dep] {
			return true
		}
	}
	return false
}

func (c *Coordinator) runStage(
	gCtx, runCtx context.Context,
	record *RunRecord,
	recordMu *sync.Mutex,
	executionID, projectID string,
	adapter stage.Adapter,
	failed, skipped map[stage.Name]bool,
) {
	name := adapter.Name()
	policy := adapter.RetryPolicy()
	backoffPolicy := backoffx.Policy{BaseDelay: policy.BaseDelay, MaxAttempts: policy.MaxAttempts, MaxDelay: policy.MaxDelay}
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	started := time.Now()
	c.updateStage(runCtx, record, recordMu, name, func(sr *StageRecord) {
		sr.Status = StageRunning
		sr.StartedAt = &started
	})

	var result stage.StageResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		stageCtx := gCtx
		var stageCancel context.CancelFunc
		if adapter.Timeout() > 0 {
			stageCtx, stageCancel = context.WithTimeout(gCtx, adapter.Timeout())
		}
		stageCtx, span := telemetry.StartStage(stageCtx, executionID, projectID, string(name), attempt)
		result = adapter.Invoke(stageCtx, projectID)
		span.End()
		if stageCancel != nil {
			stageCancel()
		}

		c.updateStage(runCtx, record, recordMu, name, func(sr *StageRecord) {
			sr.Attempts = attempt
		})

		if result.Success {
			break
		}
		kind := pipelineerr.KindOf(result.Err)
		if gCtx.Err() != nil {
			break
		}
		if attempt >= maxAttempts || !policy.IsRetryableKind(kind) {
			break
		}
		metrics.RecordRetry(string(name), string(kind))
		select {
		case <-time.After(backoffPolicy.Delay(attempt)):
		case <-gCtx.Done():
		}
	}

	completed := time.Now()
	if result.Success {
		metrics.ObserveStage(string(name), string(StageSucceeded), completed.Sub(started))
		c.updateStage(runCtx, record, recordMu, name, func(sr *StageRecord) {
			sr.Status = StageSucceeded
			sr.CompletedAt = &completed
			if result.OutputContextRef != nil {
				sr.OutputContextRef = fmt.Sprintf("%s/%s", result.OutputContextRef.ProjectID, result.OutputContextRef.Type)
			}
		})
		return
	}

	kind := pipelineerr.KindOf(result.Err)
	status := StageFailed
	switch {
	case gCtx.Err() == context.DeadlineExceeded || kind == pipelineerr.Timeout:
		status = StageTimedOut
	case gCtx.Err() == context.Canceled || kind == pipelineerr.Cancelled:
		status = StageCancelled
	}

	recordMu.Lock()
	if status == StageCancelled {
		skipped[name] = true
	} else {
		failed[name] = true
	}
	recordMu.Unlock()

	metrics.ObserveStage(string(name), string(status), completed.Sub(started))
	c.updateStage(runCtx, record, recordMu, name, func(sr *StageRecord) {
		sr.Status = status
		sr.CompletedAt = &completed
		sr.ErrorKind = kind
		if result.Err != nil {
			sr.ErrorMessage = result.Err.Error()
		}
	})
}

func (c *Coordinator) updateStage(ctx context.Context, record *RunRecord, recordMu *sync.Mutex, name stage.Name, mutate func(*StageRecord)) {
	recordMu.Lock()
	idx := record.StageIndex(name)
	if idx >= 0 {
		mutate(&record.Stages[idx])
	}
	snapshot := *record
	snapshot.Stages = append([]StageRecord(nil), record.Stages...)
	recordMu.Unlock()

	if err := c.runs.Update(ctx, &snapshot); err != nil {
		log.WithComponentFromContext(ctx, "runcoordinator").Warn().
			Str("execution_id", record.ExecutionID).
			Str("stage", string(name)).
			Err(err).
			Msg("failed to persist stage update")
	}
}

func (c *Coordinator) markRemainingCancelled(ctx context.Context, record *RunRecord, recordMu *sync.Mutex, names []stage.Name) {
	for _, name := range names {
		c.updateStage(ctx, record, recordMu, name, func(sr *StageRecord) {
			sr.Status = StageCancelled
		})
	}
}

// aggregateStatus computes the run's terminal status per spec §4.6 step 7:
// succeeded iff every stage succeeded; partial iff the gate passed
// (QualityGate reached StageSucceeded) but some non-essential stage (e.g.
// Publisher) did not; failed for every other non-succeeded outcome,
// including gate-upstream failures and mid-run cancellation.
func (c *Coordinator) aggregateStatus(record *RunRecord) RunStatus {
	allSucceeded := true
	gateSucceeded := false
	cancelled := false
	for _, sr := range record.Stages {
		switch sr.Status {
		case StageSucceeded:
			if sr.Name == stage.NameQualityGate {
				gateSucceeded = true
			}
		case StageCancelled:
			allSucceeded = false
			cancelled = true
		default:
			allSucceeded = false
		}
	}
	switch {
	case allSucceeded:
		return RunSucceeded
	case gateSucceeded && !cancelled:
		return RunPartial
	default:
		return RunFailed
	}
}
