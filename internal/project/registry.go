// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/reelforge/pipelinecore/internal/idgen"
	"github.com/reelforge/pipelinecore/internal/pipelineerr"
)

// Registry allocates ProjectIds and writes/verifies the fixed folder
// skeleton (spec §4.2). It is the only component permitted to create or
// reshape that layout.
type Registry struct {
	store  ObjectStore
	logger zerolog.Logger

	mu        sync.Mutex
	projected map[string]bool // projectID -> layout already verified this process
}

// NewRegistry constructs a Registry over store.
func NewRegistry(store ObjectStore, logger zerolog.Logger) *Registry {
	return &Registry{store: store, logger: logger, projected: make(map[string]bool)}
}

// CreateProject slug-normalizes topic, allocates a ProjectId, and writes
// every required folder prefix. Re-invocation with a topic that allocates
// the same id re-verifies and returns (idempotent per spec §4.2).
func (r *Registry) CreateProject(ctx context.Context, topic string) (string, error) {
	return r.CreateProjectAt(ctx, topic, nil)
}

// CreateProjectAt is CreateProject with an injectable clock, for tests that
// need deterministic ids.
func (r *Registry) CreateProjectAt(ctx context.Context, topic string, clock idgen.Clock) (string, error) {
	projectID := idgen.NewProjectID(topic, clock)
	if err := r.ensureLayout(ctx, projectID); err != nil {
		return "", err
	}
	r.logger.Info().Str("project_id", projectID).Str("topic", topic).Msg("project created")
	return projectID, nil
}

// VerifyLayout re-checks (and repairs, if needed) an existing project's
// skeleton without allocating a new id.
func (r *Registry) VerifyLayout(ctx context.Context, projectID string) error {
	return r.ensureLayout(ctx, projectID)
}

func (r *Registry) ensureLayout(ctx context.Context, projectID string) error {
	r.mu.Lock()
	alreadyProjected := r.projected[projectID]
	r.mu.Unlock()
	_ = alreadyProjected // re-verification is cheap and idempotent; always run it

	for _, folder := range TopLevelFolders() {
		if err := r.store.EnsurePrefix(ctx, projectID, folder); err != nil {
			return pipelineerr.Wrap(pipelineerr.Backend, "ensure project folder "+folder, err)
		}
	}

	layout := BuildLayout(projectID)
	for _, sub := range []string{layout.AudioSegDir, layout.VideoLogDir} {
		if err := r.store.EnsurePrefix(ctx, projectID, sub); err != nil {
			return pipelineerr.Wrap(pipelineerr.Backend, "ensure project subfolder "+sub, err)
		}
	}

	r.mu.Lock()
	r.projected[projectID] = true
	r.mu.Unlock()
	return nil
}

// IsValid reports whether a project's six top-level folders all exist
// (spec §4.2 invariant).
func (r *Registry) IsValid(ctx context.Context, projectID string) (bool, error) {
	for _, folder := range TopLevelFolders() {
		ok, err := r.folderExists(ctx, projectID, folder)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (r *Registry) folderExists(ctx context.Context, projectID, folder string) (bool, error) {
	ok, err := r.store.PrefixExists(ctx, projectID, folder)
	if err != nil {
		return false, pipelineerr.Wrap(pipelineerr.Backend, "check project folder "+folder, err)
	}
	return ok, nil
}

// Layout exposes the pure path computation for projectID.
func (r *Registry) Layout(projectID string) Layout {
	return BuildLayout(projectID)
}
