// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package runcoordinator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/pipelinecore/internal/contextstore"
	"github.com/reelforge/pipelinecore/internal/pipelineerr"
	"github.com/reelforge/pipelinecore/internal/project"
	"github.com/reelforge/pipelinecore/internal/qualitygate"
	"github.com/reelforge/pipelinecore/internal/stage"
	"github.com/reelforge/pipelinecore/internal/stage/refadapters"
)

func newHarness(t *testing.T) (*Coordinator, *project.Registry, contextstore.Store, project.ObjectStore, *stage.Registry) {
	t.Helper()
	cstore := contextstore.New(contextstore.NewMemoryBackend(), 64*1024, contextstore.DefaultTTLPolicy())
	objects := project.NewMemoryObjectStore()
	registry := project.NewRegistry(objects, zerolog.Nop())

	stages := stage.NewRegistry()
	stages.Register(refadapters.NewTopicPlanner(cstore, time.Second))
	stages.Register(refadapters.NewScriptWriter(cstore, time.Second))
	stages.Register(refadapters.NewMediaCurator(cstore, objects, 3, time.Second))
	stages.Register(refadapters.NewAudioSynth(cstore, objects, time.Second))
	gate := qualitygate.New(cstore, objects, qualitygate.DefaultOptions())
	stages.Register(qualitygate.NewAdapter(gate, time.Second))
	stages.Register(refadapters.NewAssembler(cstore, time.Second))
	stages.Register(refadapters.NewPublisher(cstore, objects, time.Second))

	runs := NewMemoryRunStore()
	coord := New(registry, stages, runs, DefaultConfig())
	return coord, registry, cstore, objects, stages
}

func TestStartRun_HappyPathSucceedsEndToEnd(t *testing.T) {
	coord, _, _, _, _ := newHarness(t)
	record, err := coord.StartRun(context.Background(), StartRunOptions{Topic: "how volcanoes form", Trigger: TriggerManual})
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, RunSucceeded, record.Status)
	assert.NotEmpty(t, record.ProjectID)
	assert.NotEmpty(t, record.ExecutionID)
	for _, sr := range record.Stages {
		assert.Equalf(t, StageSucceeded, sr.Status, "stage %s", sr.Name)
		assert.GreaterOrEqual(t, sr.Attempts, 1)
	}
}

// failingAdapter always fails with a configurable, optionally-retryable kind.
type failingAdapter struct {
	name    stage.Name
	inputs  []contextstore.Type
	output  contextstore.Type
	hasOut  bool
	kind    pipelineerr.Kind
	retry   stage.RetryPolicy
	calls   atomic.Int32
}

func (f *failingAdapter) Name() stage.Name                            { return f.name }
func (f *failingAdapter) InputContextTypes() []contextstore.Type       { return f.inputs }
func (f *failingAdapter) OutputContextType() (contextstore.Type, bool) { return f.output, f.hasOut }
func (f *failingAdapter) Timeout() time.Duration                       { return time.Second }
func (f *failingAdapter) RetryPolicy() stage.RetryPolicy               { return f.retry }
func (f *failingAdapter) Invoke(ctx context.Context, projectID string) stage.StageResult {
	f.calls.Add(1)
	return stage.StageResult{Success: false, Err: pipelineerr.New(f.kind, "synthetic failure")}
}

func TestStartRun_ParallelWaveFailurePropagatesSkipToDownstream(t *testing.T) {
	coord, _, cstore, objects, stages := newHarness(t)

	failer := &failingAdapter{
		name:   stage.NameMediaCurator,
		inputs: []contextstore.Type{contextstore.TypeScene},
		output: contextstore.TypeMedia,
		hasOut: true,
		kind:   pipelineerr.Backend,
		retry:  stage.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}
	stages.Register(failer)
	_ = cstore
	_ = objects

	record, err := coord.StartRun(context.Background(), StartRunOptions{Topic: "ocean currents explained", Trigger: TriggerManual})
	require.NoError(t, err)

	assert.Equal(t, int32(3), failer.calls.Load())
	byName := map[stage.Name]StageRecord{}
	for _, sr := range record.Stages {
		byName[sr.Name] = sr
	}
	assert.Equal(t, StageSucceeded, byName[stage.NameTopicPlanner].Status)
	assert.Equal(t, StageSucceeded, byName[stage.NameScriptWriter].Status)
	assert.Equal(t, StageFailed, byName[stage.NameMediaCurator].Status)
	assert.Equal(t, StageSucceeded, byName[stage.NameAudioSynth].Status)
	assert.Equal(t, StageSkipped, byName[stage.NameQualityGate].Status)
	assert.Equal(t, StageSkipped, byName[stage.NameAssembler].Status)
	assert.Equal(t, StageSkipped, byName[stage.NamePublisher].Status)
	assert.Equal(t, RunFailed, record.Status)
}

func TestStartRun_CancellationMarksRunningStageCancelled(t *testing.T) {
	coord, _, _, _, stages := newHarness(t)

	release := make(chan struct{})
	slow := &blockingAdapter{name: stage.NameScriptWriter, inputs: []contextstore.Type{contextstore.TypeTopic}, output: contextstore.TypeScene, hasOut: true, release: release}
	stages.Register(slow)
	coord.cfg.CancelGrace = time.Millisecond

	done := make(chan *RunRecord, 1)
	go func() {
		r, _ := coord.StartRun(context.Background(), StartRunOptions{Topic: "tide pools", Trigger: TriggerManual})
		done <- r
	}()

	time.Sleep(20 * time.Millisecond)
	execIDs := coord.activeExecutionIDs()
	require.Len(t, execIDs, 1)
	coord.CancelRun(execIDs[0])
	close(release)

	select {
	case record := <-done:
		require.NotNil(t, record)
		assert.NotEqual(t, RunSucceeded, record.Status)
		for _, sr := range record.Stages {
			if sr.Name == stage.NameScriptWriter {
				assert.Equal(t, StageCancelled, sr.Status)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not complete after cancellation")
	}
}

type blockingAdapter struct {
	name    stage.Name
	inputs  []contextstore.Type
	output  contextstore.Type
	hasOut  bool
	release chan struct{}
}

func (b *blockingAdapter) Name() stage.Name                            { return b.name }
func (b *blockingAdapter) InputContextTypes() []contextstore.Type       { return b.inputs }
func (b *blockingAdapter) OutputContextType() (contextstore.Type, bool) { return b.output, b.hasOut }
func (b *blockingAdapter) Timeout() time.Duration                       { return 0 }
func (b *blockingAdapter) RetryPolicy() stage.RetryPolicy               { return stage.RetryPolicy{MaxAttempts: 1} }
func (b *blockingAdapter) Invoke(ctx context.Context, projectID string) stage.StageResult {
	select {
	case <-b.release:
		return stage.StageResult{Success: false, Err: pipelineerr.New(pipelineerr.Cancelled, "stopped for test")}
	case <-ctx.Done():
		return stage.StageResult{Success: false, Err: pipelineerr.New(pipelineerr.Cancelled, "context done")}
	}
}
