// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package contextstore

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/pipelinecore/internal/backoffx"
	"github.com/reelforge/pipelinecore/internal/pipelineerr"
)

// flakyBackend fails its first N GetInline calls with a Backend-classified
// error, then succeeds; it wraps an otherwise-working MemoryBackend.
type flakyBackend struct {
	*MemoryBackend
	failsRemaining atomic.Int32
}

func (f *flakyBackend) GetInline(ctx context.Context, key string) ([]byte, bool, error) {
	if f.failsRemaining.Add(-1) >= 0 {
		return nil, false, pipelineerr.New(pipelineerr.Backend, "transient backend hiccup")
	}
	return f.MemoryBackend.GetInline(ctx, key)
}

func TestGetWithRetry_RecoversFromTransientBackendError(t *testing.T) {
	backend := &flakyBackend{MemoryBackend: NewMemoryBackend()}
	backend.failsRemaining.Store(2)
	s := New(backend, 1024, DefaultTTLPolicy())
	ctx := context.Background()

	doc := validTopic("project-a")
	_, err := s.Put(ctx, "project-a", TypeTopic, doc)
	require.NoError(t, err)

	got, err := GetWithRetry(ctx, s, "project-a", TypeTopic, backoffx.Policy{BaseDelay: time.Millisecond, MaxAttempts: 5})
	require.NoError(t, err)
	assert.Equal(t, doc.SelectedTopic, got.(*TopicContext).SelectedTopic)
}

func TestGetWithRetry_DoesNotRetryContextMissing(t *testing.T) {
	s := New(NewMemoryBackend(), 1024, DefaultTTLPolicy())
	_, err := GetWithRetry(context.Background(), s, "nope", TypeTopic, backoffx.DefaultPolicy())
	require.Error(t, err)
	assert.Equal(t, pipelineerr.ContextMissing, pipelineerr.KindOf(err))
}
