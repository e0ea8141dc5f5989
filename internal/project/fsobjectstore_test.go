// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFSObjectStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSObjectStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "proj-1", "01-context/manifest.json", []byte(`{"ok":true}`)))

	data, ok, err := s.Get(ctx, "proj-1", "01-context/manifest.json")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"ok":true}`, string(data))
}

func TestFSObjectStore_EnsurePrefixIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSObjectStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.EnsurePrefix(ctx, "proj-1", "03-media"))
	require.NoError(t, s.EnsurePrefix(ctx, "proj-1", "03-media"))

	ok, err := s.PrefixExists(ctx, "proj-1", "03-media")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFSObjectStore_ListExcludesSentinel(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSObjectStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.EnsurePrefix(ctx, "proj-1", "03-media/scene-1/images"))
	require.NoError(t, s.Put(ctx, "proj-1", "03-media/scene-1/images/a.jpg", []byte("x")))

	entries, err := s.List(ctx, "proj-1", "03-media/scene-1/images")
	require.NoError(t, err)
	require.Equal(t, []string{"03-media/scene-1/images/a.jpg"}, entries)
}

func TestFSObjectStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSObjectStore(t.TempDir())
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, "proj-1", "nope.json")
	require.NoError(t, err)
	require.False(t, ok)
}
