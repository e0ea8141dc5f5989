// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package refadapters ships deterministic reference implementations of the
// fixed stage set (spec §4.3). They are not real LLM/TTS/encoder clients —
// those are explicitly out of scope — but they implement the Adapter
// contract fully against the Context Store and the object store, so the Run
// Coordinator and its tests can exercise the complete DAG without any
// network calls. Real adapters register under the same stage.Name via the
// same Registry.Register call at process wiring time.
package refadapters

import (
	"context"
	"fmt"
	"time"

	"github.com/reelforge/pipelinecore/internal/contextstore"
	"github.com/reelforge/pipelinecore/internal/pipelineerr"
	"github.com/reelforge/pipelinecore/internal/project"
	"github.com/reelforge/pipelinecore/internal/stage"
)

// base carries the fields every reference adapter shares.
type base struct {
	name        stage.Name
	inputs      []contextstore.Type
	output      contextstore.Type
	hasOutput   bool
	timeout     time.Duration
	retry       stage.RetryPolicy
	store       contextstore.Store
}

func (b base) Name() stage.Name                               { return b.name }
func (b base) InputContextTypes() []contextstore.Type          { return b.inputs }
func (b base) OutputContextType() (contextstore.Type, bool)    { return b.output, b.hasOutput }
func (b base) Timeout() time.Duration                          { return b.timeout }
func (b base) RetryPolicy() stage.RetryPolicy                  { return b.retry }

func fail(err error) stage.StageResult {
	return stage.StageResult{Success: false, Err: err}
}

func ok(ref contextstore.Ref) stage.StageResult {
	return stage.StageResult{Success: true, OutputContextRef: &ref}
}

// checkCancelled returns a Cancelled stage result if ctx is already done,
// honoring the cooperative-cancellation contract at the Invoke boundary
// (spec §4.3, §5).
func checkCancelled(ctx context.Context) (stage.StageResult, bool) {
	select {
	case <-ctx.Done():
		return fail(pipelineerr.New(pipelineerr.Cancelled, "stage cancelled before invocation")), true
	default:
		return stage.StageResult{}, false
	}
}

// TopicPlanner deterministically expands a seed topic into a TopicContext.
// It reads the seed topic from SeedTopics (keyed by projectId), falling back
// to the projectId itself as the seed when none is registered (so ad-hoc
// ProjectIds used in tests still work).
type TopicPlanner struct {
	base
	SeedTopics map[string]string
}

// NewTopicPlanner constructs the TopicPlanner reference adapter.
func NewTopicPlanner(store contextstore.Store, timeout time.Duration) *TopicPlanner {
	return &TopicPlanner{
		base: base{
			name:    stage.NameTopicPlanner,
			inputs:  nil,
			output:  contextstore.TypeTopic,
			hasOutput: true,
			timeout: timeout,
			retry:   stage.DefaultRetryPolicy(),
			store:   store,
		},
		SeedTopics: make(map[string]string),
	}
}

func (p *TopicPlanner) Invoke(ctx context.Context, projectID string) stage.StageResult {
	if r, cancelled := checkCancelled(ctx); cancelled {
		return r
	}
	seed := p.SeedTopics[projectID]
	if seed == "" {
		seed = projectID
	}
	doc := &contextstore.TopicContext{
		ProjectID:      projectID,
		SelectedTopic:  seed,
		ExpandedTopics: []string{seed, seed + ": an overview", seed + " explained"},
		VideoStructure: contextstore.VideoStructure{HookSeconds: 10, MainSeconds: 45, ConclusionSeconds: 10, RecommendedScenes: 5},
		SEOContext:     contextstore.SEOContext{PrimaryKeywords: []string{seed}},
	}
	ref, err := p.store.Put(ctx, projectID, contextstore.TypeTopic, doc)
	if err != nil {
		return fail(err)
	}
	return ok(ref)
}

// ScriptWriter turns a TopicContext into a fixed number of scenes.
type ScriptWriter struct{ base }

func NewScriptWriter(store contextstore.Store, timeout time.Duration) *ScriptWriter {
	return &ScriptWriter{base{
		name: stage.NameScriptWriter, inputs: []contextstore.Type{contextstore.TypeTopic},
		output: contextstore.TypeScene, hasOutput: true, timeout: timeout, retry: stage.DefaultRetryPolicy(), store: store,
	}}
}

func (s *ScriptWriter) Invoke(ctx context.Context, projectID string) stage.StageResult {
	if r, cancelled := checkCancelled(ctx); cancelled {
		return r
	}
	topicDoc, err := s.store.Get(ctx, projectID, contextstore.TypeTopic)
	if err != nil {
		return fail(err)
	}
	topic, ok2 := topicDoc.(*contextstore.TopicContext)
	if !ok2 {
		return fail(pipelineerr.New(pipelineerr.ContextMissing, "topic context has unexpected shape"))
	}

	n := topic.VideoStructure.RecommendedScenes
	if n <= 0 {
		n = 3
	}
	sceneDuration := 10.0
	scenes := make([]contextstore.Scene, 0, n)
	var elapsed float64
	for i := 1; i <= n; i++ {
		scenes = append(scenes, contextstore.Scene{
			SceneNumber: i,
			StartTime:   elapsed,
			Duration:    sceneDuration,
			Script:      fmt.Sprintf("Scene %d of %s.", i, topic.SelectedTopic),
			MediaNeeds:  []contextstore.MediaNeed{{Description: topic.SelectedTopic, Kind: "image"}},
		})
		elapsed += sceneDuration
	}

	doc := &contextstore.SceneContext{
		ProjectID:        projectID,
		SelectedSubtopic: topic.SelectedTopic,
		Scenes:           scenes,
		TotalDuration:    elapsed,
	}
	ref, err := s.store.Put(ctx, projectID, contextstore.TypeScene, doc)
	if err != nil {
		return fail(err)
	}
	return ok(ref)
}

// MediaCurator assigns a deterministic set of synthetic media assets to
// every scene. obj is used to also materialize placeholder visual files so
// the Quality Gate's structural checks (min visuals per scene) can pass
// end-to-end in tests.
type MediaCurator struct {
	base
	Store       project.ObjectStore
	VisualsPerScene int
}

func NewMediaCurator(cstore contextstore.Store, obj project.ObjectStore, visualsPerScene int, timeout time.Duration) *MediaCurator {
	if visualsPerScene <= 0 {
		visualsPerScene = 3
	}
	return &MediaCurator{
		base: base{
			name: stage.NameMediaCurator, inputs: []contextstore.Type{contextstore.TypeScene},
			output: contextstore.TypeMedia, hasOutput: true, timeout: timeout, retry: stage.DefaultRetryPolicy(), store: cstore,
		},
		Store:           obj,
		VisualsPerScene: visualsPerScene,
	}
}

func (m *MediaCurator) Invoke(ctx context.Context, projectID string) stage.StageResult {
	if r, cancelled := checkCancelled(ctx); cancelled {
		return r
	}
	sceneDoc, err := m.base.store.Get(ctx, projectID, contextstore.TypeScene)
	if err != nil {
		return fail(err)
	}
	scene, ok2 := sceneDoc.(*contextstore.SceneContext)
	if !ok2 {
		return fail(pipelineerr.New(pipelineerr.ContextMissing, "scene context has unexpected shape"))
	}

	layout := project.BuildLayout(projectID)
	mapping := make(map[int][]contextstore.MediaAsset, len(scene.Scenes))
	total := 0
	for _, sc := range scene.Scenes {
		var assets []contextstore.MediaAsset
		for i := 0; i < m.VisualsPerScene; i++ {
			key := fmt.Sprintf("%s/asset-%d.jpg", layout.SceneImagesDir(sc.SceneNumber), i+1)
			if err := m.Store.Put(ctx, projectID, key, []byte("synthetic-image")); err != nil {
				return fail(pipelineerr.Wrap(pipelineerr.Backend, "write placeholder visual", err))
			}
			assets = append(assets, contextstore.MediaAsset{
				Source:         "reference-stock",
				Provenance:     "synthetic",
				DurationHint:   sc.Duration,
				RelevanceScore: 0.9,
				StorageKey:     key,
			})
		}
		mapping[sc.SceneNumber] = assets
		total += len(assets)
	}

	doc := &contextstore.MediaContext{ProjectID: projectID, SceneMediaMapping: mapping, TotalAssets: total}
	ref, err := m.base.store.Put(ctx, projectID, contextstore.TypeMedia, doc)
	if err != nil {
		return fail(err)
	}
	return ok(ref)
}

// AudioSynth fabricates a narration track with one segment per scene and
// word-level timing marks spaced evenly across each segment.
type AudioSynth struct {
	base
	Store project.ObjectStore
}

func NewAudioSynth(cstore contextstore.Store, obj project.ObjectStore, timeout time.Duration) *AudioSynth {
	return &AudioSynth{
		base: base{
			name: stage.NameAudioSynth, inputs: []contextstore.Type{contextstore.TypeScene},
			output: contextstore.TypeAudio, hasOutput: true, timeout: timeout, retry: stage.DefaultRetryPolicy(), store: cstore,
		},
		Store: obj,
	}
}

func (a *AudioSynth) Invoke(ctx context.Context, projectID string) stage.StageResult {
	if r, cancelled := checkCancelled(ctx); cancelled {
		return r
	}
	sceneDoc, err := a.base.store.Get(ctx, projectID, contextstore.TypeScene)
	if err != nil {
		return fail(err)
	}
	scene, ok2 := sceneDoc.(*contextstore.SceneContext)
	if !ok2 {
		return fail(pipelineerr.New(pipelineerr.ContextMissing, "scene context has unexpected shape"))
	}

	layout := project.BuildLayout(projectID)
	segments := make([]contextstore.AudioSegment, 0, len(scene.Scenes))
	marks := make([]contextstore.TimingMark, 0, len(scene.Scenes)*2)
	var total float64
	for _, sc := range scene.Scenes {
		key := layout.AudioSegmentFile(sc.SceneNumber)
		if err := a.Store.Put(ctx, projectID, key, []byte("synthetic-audio")); err != nil {
			return fail(pipelineerr.Wrap(pipelineerr.Backend, "write audio segment", err))
		}
		segments = append(segments, contextstore.AudioSegment{SceneNumber: sc.SceneNumber, StorageKey: key, Duration: sc.Duration})
		marks = append(marks,
			contextstore.TimingMark{SceneNumber: sc.SceneNumber, Word: "start", AtSeconds: sc.StartTime},
			contextstore.TimingMark{SceneNumber: sc.SceneNumber, Word: "end", AtSeconds: sc.StartTime + sc.Duration},
		)
		total += sc.Duration
	}
	if err := a.Store.Put(ctx, projectID, layout.NarrationMP3, []byte("synthetic-narration")); err != nil {
		return fail(pipelineerr.Wrap(pipelineerr.Backend, "write narration master", err))
	}

	doc := &contextstore.AudioContext{
		ProjectID:     projectID,
		MasterAudioID: layout.NarrationMP3,
		Segments:      segments,
		TotalDuration: total,
		TimingMarks:   marks,
	}
	ref, err := a.base.store.Put(ctx, projectID, contextstore.TypeAudio, doc)
	if err != nil {
		return fail(err)
	}
	return ok(ref)
}

// Assembler turns an approved manifest into a terminal VideoContext.
type Assembler struct{ base }

func NewAssembler(store contextstore.Store, timeout time.Duration) *Assembler {
	return &Assembler{base{
		name: stage.NameAssembler, inputs: []contextstore.Type{contextstore.TypeManifest},
		output: contextstore.TypeVideo, hasOutput: true, timeout: timeout, retry: stage.DefaultRetryPolicy(), store: store,
	}}
}

func (a *Assembler) Invoke(ctx context.Context, projectID string) stage.StageResult {
	if r, cancelled := checkCancelled(ctx); cancelled {
		return r
	}
	manifestDoc, err := a.base.store.Get(ctx, projectID, contextstore.TypeManifest)
	if err != nil {
		return fail(err)
	}
	manifest, ok2 := manifestDoc.(*contextstore.ManifestContext)
	if !ok2 {
		return fail(pipelineerr.New(pipelineerr.ContextMissing, "manifest context has unexpected shape"))
	}

	var duration float64
	for _, sc := range manifest.Scenes {
		duration += sc.DurationHint
	}
	layout := project.BuildLayout(projectID)
	doc := &contextstore.VideoContext{
		ProjectID:         projectID,
		OutputRef:         layout.VideoDir + "/final.mp4",
		Duration:          duration,
		VideoMetadata:     map[string]any{"resolution": manifest.Export.Resolution, "codec": manifest.Export.Codec},
		ProcessingResults: map[string]any{"scenesAssembled": len(manifest.Scenes)},
		ProcessingLogRefs: []string{layout.VideoLogDir + "/assembly.log"},
	}
	ref, err := a.base.store.Put(ctx, projectID, contextstore.TypeVideo, doc)
	if err != nil {
		return fail(err)
	}
	return ok(ref)
}

// Publisher writes no new context; it only updates project metadata, as
// spec §4.3 specifies ("updates project metadata object").
type Publisher struct {
	base
	Store project.ObjectStore
}

func NewPublisher(cstore contextstore.Store, obj project.ObjectStore, timeout time.Duration) *Publisher {
	return &Publisher{
		base: base{
			name: stage.NamePublisher, inputs: []contextstore.Type{contextstore.TypeManifest, contextstore.TypeVideo},
			hasOutput: false, timeout: timeout, retry: stage.DefaultRetryPolicy(), store: cstore,
		},
		Store: obj,
	}
}

func (p *Publisher) Invoke(ctx context.Context, projectID string) stage.StageResult {
	if r, cancelled := checkCancelled(ctx); cancelled {
		return r
	}
	if _, err := p.base.store.Get(ctx, projectID, contextstore.TypeManifest); err != nil {
		return fail(err)
	}
	videoDoc, err := p.base.store.Get(ctx, projectID, contextstore.TypeVideo)
	if err != nil {
		return fail(err)
	}
	video := videoDoc.(*contextstore.VideoContext)

	layout := project.BuildLayout(projectID)
	body := fmt.Sprintf(`{"projectId":%q,"published":true,"outputRef":%q}`, projectID, video.OutputRef)
	if err := p.Store.Put(ctx, projectID, layout.MetadataDir+"/publish-receipt.json", []byte(body)); err != nil {
		return fail(pipelineerr.Wrap(pipelineerr.Backend, "write publish receipt", err))
	}
	return stage.StageResult{Success: true}
}
