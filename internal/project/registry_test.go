// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/pipelinecore/internal/idgen"
)

func fixedClock(t time.Time) idgen.Clock {
	return func() time.Time { return t }
}

func TestRegistry_CreateProject_WritesAllSixFolders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryObjectStore()
	reg := NewRegistry(store, zerolog.Nop())

	projectID, err := reg.CreateProjectAt(ctx, "Travel to Spain", fixedClock(time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, "2026-07-30_12-00-00_travel-to-spain", projectID)

	valid, err := reg.IsValid(ctx, projectID)
	require.NoError(t, err)
	assert.True(t, valid)

	for _, folder := range TopLevelFolders() {
		ok, err := store.PrefixExists(ctx, projectID, folder)
		require.NoError(t, err)
		assert.True(t, ok, "folder %s should exist", folder)
	}
}

func TestRegistry_CreateProject_IdempotentSameSecond(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryObjectStore()
	reg := NewRegistry(store, zerolog.Nop())
	clock := fixedClock(time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC))

	first, err := reg.CreateProjectAt(ctx, "Travel to Spain", clock)
	require.NoError(t, err)
	second, err := reg.CreateProjectAt(ctx, "Travel to Spain", clock)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRegistry_CreateProject_DifferentTopicsSameSecondSalted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryObjectStore()
	reg := NewRegistry(store, zerolog.Nop())
	clock := fixedClock(time.Date(2026, 7, 30, 12, 0, 1, 0, time.UTC))

	a, err := reg.CreateProjectAt(ctx, "Same Slug Topic!!", clock)
	require.NoError(t, err)
	b, err := reg.CreateProjectAt(ctx, "Same Slug Topic??", clock)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestRegistry_IsValid_FalseBeforeCreation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryObjectStore()
	reg := NewRegistry(store, zerolog.Nop())

	valid, err := reg.IsValid(ctx, "nonexistent-project")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestLayout_SceneHelpers(t *testing.T) {
	l := BuildLayout("2026-07-30_12-00-00_travel-to-spain")
	assert.Equal(t, "03-media/scene-3/images", l.SceneImagesDir(3))
	assert.Equal(t, "04-audio/audio-segments/segment-2.mp3", l.AudioSegmentFile(2))
}

func TestIsVisualFile(t *testing.T) {
	assert.True(t, IsVisualFile("03-media/scene-1/images/a.jpg"))
	assert.True(t, IsVisualFile("03-media/scene-1/images/a.MP4"))
	assert.False(t, IsVisualFile("03-media/scene-1/images/a.txt"))
}
