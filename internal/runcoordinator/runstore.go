// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package runcoordinator

import (
	"context"
	"sync"

	"github.com/reelforge/pipelinecore/internal/pipelineerr"
)

// RunStore persists RunRecords, keyed by executionId.
type RunStore interface {
	Create(ctx context.Context, r *RunRecord) error
	Update(ctx context.Context, r *RunRecord) error
	Get(ctx context.Context, executionID string) (*RunRecord, error)
}

// MemoryRunStore is an in-process RunStore used by tests.
type MemoryRunStore struct {
	mu      sync.RWMutex
	records map[string]*RunRecord
}

// NewMemoryRunStore constructs an empty MemoryRunStore.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{records: make(map[string]*RunRecord)}
}

func (s *MemoryRunStore) Create(_ context.Context, r *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records[r.ExecutionID] = &cp
	return nil
}

func (s *MemoryRunStore) Update(_ context.Context, r *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ExecutionID]; !ok {
		return pipelineerr.New(pipelineerr.Validation, "run record does not exist")
	}
	cp := *r
	s.records[r.ExecutionID] = &cp
	return nil
}

func (s *MemoryRunStore) Get(_ context.Context, executionID string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[executionID]
	if !ok {
		return nil, pipelineerr.New(pipelineerr.ContextMissing, "run record not found")
	}
	cp := *r
	return &cp, nil
}
