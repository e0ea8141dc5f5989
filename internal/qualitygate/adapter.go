// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package qualitygate

import (
	"context"
	"time"

	"github.com/reelforge/pipelinecore/internal/contextstore"
	"github.com/reelforge/pipelinecore/internal/stage"
)

// Adapter wraps Gate as a stage.Adapter so the Run Coordinator drives it
// through the same uniform Invoke contract as every other stage (spec
// §4.3: "QualityGate is not optional: if present in the DAG it must pass
// before Assembler runs").
type Adapter struct {
	gate    *Gate
	timeout time.Duration
}

// NewAdapter wraps gate for registration under stage.NameQualityGate.
func NewAdapter(gate *Gate, timeout time.Duration) *Adapter {
	return &Adapter{gate: gate, timeout: timeout}
}

func (a *Adapter) Name() stage.Name { return stage.NameQualityGate }

func (a *Adapter) InputContextTypes() []contextstore.Type {
	return []contextstore.Type{contextstore.TypeTopic, contextstore.TypeScene, contextstore.TypeMedia, contextstore.TypeAudio}
}

func (a *Adapter) OutputContextType() (contextstore.Type, bool) {
	return contextstore.TypeManifest, true
}

func (a *Adapter) Timeout() time.Duration { return a.timeout }

// RetryPolicy is a single attempt: QualityGateRejected is never retryable
// (spec §7), and structural/consistency failures won't change without new
// upstream output.
func (a *Adapter) RetryPolicy() stage.RetryPolicy {
	return stage.RetryPolicy{MaxAttempts: 1}
}

func (a *Adapter) Invoke(ctx context.Context, projectID string) stage.StageResult {
	manifest, report, err := a.gate.Evaluate(ctx, projectID)
	if persistErr := a.gate.Persist(ctx, projectID, manifest, report); persistErr != nil {
		return stage.StageResult{Success: false, Err: persistErr}
	}
	if err != nil {
		return stage.StageResult{Success: false, Err: err}
	}
	ref := contextstore.Ref{ProjectID: projectID, Type: contextstore.TypeManifest}
	return stage.StageResult{Success: true, OutputContextRef: &ref}
}
