// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package contextstore

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestBadgerBackend(t *testing.T) *BadgerBackend {
	t.Helper()
	b, err := NewBadgerBackend(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBadgerBackend_BlobPutGet(t *testing.T) {
	b := newTestBadgerBackend(t)
	ctx := context.Background()

	require.NoError(t, b.PutBlob(ctx, "k1", []byte("large payload"), time.Minute))

	val, ok, err := b.GetBlob(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "large payload", string(val))
}

func TestBadgerBackend_GetMissing(t *testing.T) {
	b := newTestBadgerBackend(t)

	_, ok, err := b.GetBlob(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBadgerBackend_FullStoreIntegration(t *testing.T) {
	b := newTestBadgerBackend(t)
	s := New(b, 4, DefaultTTLPolicy()) // tiny threshold forces blob placement
	ctx := context.Background()

	doc := validTopic("project-a")
	ref, err := s.Put(ctx, "project-a", TypeTopic, doc)
	require.NoError(t, err)
	require.Equal(t, PlacementBlob, ref.Placement)

	got, err := s.Get(ctx, "project-a", TypeTopic)
	require.NoError(t, err)
	require.Equal(t, doc.SelectedTopic, got.(*TopicContext).SelectedTopic)
}
