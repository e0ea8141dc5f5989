// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stage is the Stage Adapter Registry: a name-to-behavior lookup for
// worker stages, and uniform invocation (spec §4.3).
package stage

import (
	"context"
	"time"

	"github.com/reelforge/pipelinecore/internal/contextstore"
	"github.com/reelforge/pipelinecore/internal/pipelineerr"
)

// Name identifies a stage; it is the stable key used in the DAG and in
// RunRecords.
type Name string

const (
	NameTopicPlanner Name = "TopicPlanner"
	NameScriptWriter Name = "ScriptWriter"
	NameMediaCurator Name = "MediaCurator"
	NameAudioSynth   Name = "AudioSynth"
	NameQualityGate  Name = "QualityGate"
	NameAssembler    Name = "Assembler"
	NamePublisher    Name = "Publisher"
)

// RetryPolicy declares how many times, and with what jittered backoff, a
// stage's transient failures are retried (spec §4.3, §5).
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RetryableKinds []pipelineerr.Kind
}

// IsRetryableKind reports whether kind is one this policy will retry; absent
// an explicit allow-list it defers to pipelineerr.IsRetryable.
func (p RetryPolicy) IsRetryableKind(kind pipelineerr.Kind) bool {
	if len(p.RetryableKinds) == 0 {
		return pipelineerr.IsRetryable(kind)
	}
	for _, k := range p.RetryableKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// DefaultRetryPolicy is the spec's suggested default (3 attempts, 200ms base).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// StageResult is what Invoke returns: a success flag and, on failure, the
// classified error kind (spec §4.3).
type StageResult struct {
	Success          bool
	OutputContextRef *contextstore.Ref
	Err              error
}

// Adapter is the uniform contract every worker stage implements. An adapter
// fetches its own inputs from the Context Store and writes its own output;
// the core never side-channels data to it.
type Adapter interface {
	Name() Name
	InputContextTypes() []contextstore.Type
	OutputContextType() (contextstore.Type, bool)
	Timeout() time.Duration
	RetryPolicy() RetryPolicy
	Invoke(ctx context.Context, projectID string) StageResult
}

// Registry is the directory of named worker stages.
type Registry struct {
	adapters map[Name]Adapter
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[Name]Adapter)}
}

// Register adds or replaces the adapter for its declared Name.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

// Lookup returns the adapter registered for name, if any.
func (r *Registry) Lookup(name Name) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns every registered stage name, in a stable (map-iteration
// independent) order is NOT guaranteed here; callers needing determinism use
// the Dependency Planner's wave order instead.
func (r *Registry) Names() []Name {
	out := make([]Name, 0, len(r.adapters))
	for n := range r.adapters {
		out = append(out, n)
	}
	return out
}
