// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package qualitygate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/pipelinecore/internal/contextstore"
	"github.com/reelforge/pipelinecore/internal/pipelineerr"
	"github.com/reelforge/pipelinecore/internal/project"
)

const testProject = "2026-07-30_12-00-00_travel-to-spain"

// seedHappyPathProject writes a fully-consistent set of upstream contexts
// and object-store artifacts so Evaluate approves by default; tests mutate
// pieces of it to exercise individual rejections.
func seedHappyPathProject(t *testing.T, cstore contextstore.Store, objects project.ObjectStore, sceneCount, visualsPerScene int) {
	t.Helper()
	ctx := context.Background()
	layout := project.BuildLayout(testProject)

	for _, folder := range project.TopLevelFolders() {
		require.NoError(t, objects.EnsurePrefix(ctx, testProject, folder))
	}
	require.NoError(t, objects.Put(ctx, testProject, layout.ScriptFile, []byte("{}")))
	require.NoError(t, objects.Put(ctx, testProject, layout.NarrationMP3, []byte("audio")))

	scenes := make([]contextstore.Scene, 0, sceneCount)
	segments := make([]contextstore.AudioSegment, 0, sceneCount)
	mapping := make(map[int][]contextstore.MediaAsset, sceneCount)
	var elapsed float64
	for i := 1; i <= sceneCount; i++ {
		scenes = append(scenes, contextstore.Scene{SceneNumber: i, StartTime: elapsed, Duration: 10, Script: "line"})
		segments = append(segments, contextstore.AudioSegment{SceneNumber: i, StorageKey: layout.AudioSegmentFile(i), Duration: 10})
		require.NoError(t, objects.Put(ctx, testProject, layout.AudioSegmentFile(i), []byte("seg")))

		var assets []contextstore.MediaAsset
		for v := 0; v < visualsPerScene; v++ {
			key := fmt.Sprintf("%s/asset-%d.jpg", layout.SceneImagesDir(i), v+1)
			require.NoError(t, objects.Put(ctx, testProject, key, []byte("img")))
			assets = append(assets, contextstore.MediaAsset{StorageKey: key})
		}
		mapping[i] = assets
		elapsed += 10
	}

	topic := &contextstore.TopicContext{
		ProjectID: testProject, SelectedTopic: "Travel to Spain", ExpandedTopics: []string{"Travel to Spain"},
		VideoStructure: contextstore.VideoStructure{RecommendedScenes: sceneCount},
		SEOContext:     contextstore.SEOContext{PrimaryKeywords: []string{"spain"}},
	}
	scene := &contextstore.SceneContext{ProjectID: testProject, SelectedSubtopic: "Travel to Spain", Scenes: scenes, TotalDuration: elapsed}
	media := &contextstore.MediaContext{ProjectID: testProject, SceneMediaMapping: mapping, TotalAssets: sceneCount * visualsPerScene}
	audio := &contextstore.AudioContext{ProjectID: testProject, MasterAudioID: layout.NarrationMP3, Segments: segments, TotalDuration: elapsed}

	_, err := cstore.Put(ctx, testProject, contextstore.TypeTopic, topic)
	require.NoError(t, err)
	_, err = cstore.Put(ctx, testProject, contextstore.TypeScene, scene)
	require.NoError(t, err)
	_, err = cstore.Put(ctx, testProject, contextstore.TypeMedia, media)
	require.NoError(t, err)
	_, err = cstore.Put(ctx, testProject, contextstore.TypeAudio, audio)
	require.NoError(t, err)
}

func newTestGate(t *testing.T, opts Options) (*Gate, contextstore.Store, project.ObjectStore) {
	t.Helper()
	cstore := contextstore.New(contextstore.NewMemoryBackend(), 1<<20, contextstore.DefaultTTLPolicy())
	objects := project.NewMemoryObjectStore()
	return New(cstore, objects, opts), cstore, objects
}

func TestGate_ApprovesHappyPath(t *testing.T) {
	gate, cstore, objects := newTestGate(t, DefaultOptions())
	seedHappyPathProject(t, cstore, objects, 4, 3)

	manifest, report, err := gate.Evaluate(context.Background(), testProject)
	require.NoError(t, err)
	assert.True(t, report.ValidationPassed)
	assert.Equal(t, 4, report.KPIs["scenes_detected"])
	assert.True(t, report.KPIs["has_narration"].(bool))
	require.NotNil(t, manifest)
	assert.Len(t, manifest.Scenes, 4)
}

func TestGate_RejectsOnInsufficientVisuals(t *testing.T) {
	gate, cstore, objects := newTestGate(t, DefaultOptions())
	seedHappyPathProject(t, cstore, objects, 4, 2) // below default minVisuals=3 for every scene
	layout := project.BuildLayout(testProject)

	_, report, err := gate.Evaluate(context.Background(), testProject)
	require.Error(t, err)
	assert.Equal(t, pipelineerr.QualityGateRejected, pipelineerr.KindOf(err))
	assert.False(t, report.ValidationPassed)

	found := false
	for _, issue := range report.Issues {
		if issue.Rule == "min_visuals" && issue.Path == layout.SceneImagesDir(1)+"/" {
			found = true
		}
	}
	assert.True(t, found, "expected a min_visuals issue, got %+v", report.Issues)
}

func TestGate_RejectsOnSceneAudioCountMismatch(t *testing.T) {
	gate, cstore, objects := newTestGate(t, DefaultOptions())
	seedHappyPathProject(t, cstore, objects, 6, 3)

	ctx := context.Background()
	audioDoc, err := cstore.Get(ctx, testProject, contextstore.TypeAudio)
	require.NoError(t, err)
	audio := audioDoc.(*contextstore.AudioContext)
	audio.Segments = audio.Segments[:5] // 6 scenes, 5 segments
	_, err = cstore.Put(ctx, testProject, contextstore.TypeAudio, audio)
	require.NoError(t, err)

	_, report, err := gate.Evaluate(ctx, testProject)
	require.Error(t, err)
	assert.Equal(t, pipelineerr.QualityGateRejected, pipelineerr.KindOf(err))

	found := false
	for _, issue := range report.Issues {
		if issue.Rule == "audio_segments_count" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGate_MinVisualsZeroDisablesVisualCheck(t *testing.T) {
	opts := DefaultOptions()
	opts.MinVisuals = 0
	gate, cstore, objects := newTestGate(t, opts)
	seedHappyPathProject(t, cstore, objects, 2, 0)

	_, report, err := gate.Evaluate(context.Background(), testProject)
	require.NoError(t, err)
	assert.True(t, report.ValidationPassed)
}

func TestGate_QuantitativeDriftRejected(t *testing.T) {
	gate, cstore, objects := newTestGate(t, DefaultOptions())
	seedHappyPathProject(t, cstore, objects, 3, 3)

	ctx := context.Background()
	audioDoc, err := cstore.Get(ctx, testProject, contextstore.TypeAudio)
	require.NoError(t, err)
	audio := audioDoc.(*contextstore.AudioContext)
	audio.TotalDuration += 100 // way outside tolerance
	_, err = cstore.Put(ctx, testProject, contextstore.TypeAudio, audio)
	require.NoError(t, err)

	_, report, err := gate.Evaluate(ctx, testProject)
	require.Error(t, err)
	found := false
	for _, issue := range report.Issues {
		if issue.Rule == "duration_drift" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGate_Persist_WritesValidationReportOnRejection(t *testing.T) {
	gate, cstore, objects := newTestGate(t, DefaultOptions())
	seedHappyPathProject(t, cstore, objects, 4, 1) // below default minVisuals=3

	ctx := context.Background()
	manifest, report, err := gate.Evaluate(ctx, testProject)
	require.Error(t, err)
	require.Nil(t, manifest)

	require.NoError(t, gate.Persist(ctx, testProject, manifest, report))

	layout := project.BuildLayout(testProject)
	data, ok, err := objects.Get(ctx, testProject, layout.ValidationReportFile)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(data), "min_visuals")

	ok, err = objects.Exists(ctx, testProject, layout.ManifestFile)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGate_Persist_WritesManifestAndSummaryOnApproval(t *testing.T) {
	gate, cstore, objects := newTestGate(t, DefaultOptions())
	seedHappyPathProject(t, cstore, objects, 3, 3)

	ctx := context.Background()
	manifest, report, err := gate.Evaluate(ctx, testProject)
	require.NoError(t, err)
	require.NoError(t, gate.Persist(ctx, testProject, manifest, report))

	layout := project.BuildLayout(testProject)
	ok, err := objects.Exists(ctx, testProject, layout.ManifestFile)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = objects.Exists(ctx, testProject, layout.ProjectSummaryFile)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := cstore.Get(ctx, testProject, contextstore.TypeManifest)
	require.NoError(t, err)
	assert.Equal(t, testProject, got.(*contextstore.ManifestContext).VideoID)
}
