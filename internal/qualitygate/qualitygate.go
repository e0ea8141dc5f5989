// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package qualitygate is the admission controller between asset generation
// and expensive assembly/publish (spec §4.5).
package qualitygate

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/reelforge/pipelinecore/internal/contextstore"
	"github.com/reelforge/pipelinecore/internal/metrics"
	"github.com/reelforge/pipelinecore/internal/pipelineerr"
	"github.com/reelforge/pipelinecore/internal/project"
)

// Severity distinguishes hard failures from soft warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one failed or flagged rule.
type Issue struct {
	Rule     string   `json:"rule"`
	Path     string   `json:"path"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail,omitempty"`
}

// Report is the full outcome of a gate evaluation, independent of whether it
// passed.
type Report struct {
	ProjectID        string         `json:"projectId"`
	Issues           []Issue        `json:"issues"`
	Warnings         []Issue        `json:"warnings"`
	KPIs             map[string]any `json:"kpis"`
	DecidedAt        time.Time      `json:"decidedAt"`
	ValidationPassed bool           `json:"validationPassed"`
}

// Options configures the gate's thresholds (spec §4.5, §9 Config).
type Options struct {
	MinVisuals          int
	RecommendedVisuals  int
	DurationTolerancePct float64
	DurationToleranceMinSec float64
}

// DefaultOptions mirrors the spec's suggested defaults.
func DefaultOptions() Options {
	return Options{MinVisuals: 3, RecommendedVisuals: 5, DurationTolerancePct: 0.02, DurationToleranceMinSec: 3}
}

// Gate evaluates a project's upstream contexts and object layout.
type Gate struct {
	contexts contextstore.Store
	objects  project.ObjectStore
	opts     Options
}

// New constructs a Gate.
func New(contexts contextstore.Store, objects project.ObjectStore, opts Options) *Gate {
	return &Gate{contexts: contexts, objects: objects, opts: opts}
}

// requiredContextTypes are the upstream contexts Evaluate reads before
// running any check.
var requiredContextTypes = []contextstore.Type{
	contextstore.TypeTopic, contextstore.TypeScene, contextstore.TypeMedia, contextstore.TypeAudio,
}

// Evaluate runs every hard and soft check and, on success, builds the
// manifest; when a hard check fails it returns a Report with
// ValidationPassed=false and a QualityGateRejected error. When a required
// upstream context is absent (ContextMissing) or cannot be read, it returns
// a nil Report with that error and runs no check. It does not write anything
// to storage — callers (the stage adapter, or `validate <projectId>`) are
// responsible for persisting the report/manifest via Persist.
func (g *Gate) Evaluate(ctx context.Context, projectID string) (*contextstore.ManifestContext, *Report, error) {
	present, err := g.contexts.ListTypes(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	presentSet := make(map[contextstore.Type]bool, len(present))
	for _, t := range present {
		presentSet[t] = true
	}
	var missing []string
	for _, t := range requiredContextTypes {
		if !presentSet[t] {
			missing = append(missing, string(t))
		}
	}
	if len(missing) > 0 {
		metrics.RecordQualityGateDecision("rejected")
		return nil, nil, pipelineerr.New(pipelineerr.ContextMissing, fmt.Sprintf("missing upstream context(s): %s", strings.Join(missing, ", ")))
	}

	topicDoc, err := g.contexts.Get(ctx, projectID, contextstore.TypeTopic)
	if err != nil {
		return nil, nil, err
	}
	sceneDoc, err := g.contexts.Get(ctx, projectID, contextstore.TypeScene)
	if err != nil {
		return nil, nil, err
	}
	mediaDoc, err := g.contexts.Get(ctx, projectID, contextstore.TypeMedia)
	if err != nil {
		return nil, nil, err
	}
	audioDoc, err := g.contexts.Get(ctx, projectID, contextstore.TypeAudio)
	if err != nil {
		return nil, nil, err
	}
	topic := topicDoc.(*contextstore.TopicContext)
	scene := sceneDoc.(*contextstore.SceneContext)
	media := mediaDoc.(*contextstore.MediaContext)
	audio := audioDoc.(*contextstore.AudioContext)

	var issues, warnings []Issue

	issues = append(issues, g.checkStructural(ctx, projectID, scene)...)
	errs, warns := g.checkConsistency(scene, media, audio)
	issues = append(issues, errs...)
	warnings = append(warnings, warns...)
	issues = append(issues, g.checkQuantitative(scene, audio)...)
	warnings = append(warnings, g.checkSoftWarnings(topic, scene)...)

	kpis := map[string]any{
		"scenes_detected": len(scene.Scenes),
		"has_narration":   audio.MasterAudioID != "",
		"total_assets":    media.TotalAssets,
	}

	report := &Report{
		ProjectID: projectID,
		Issues:    issues,
		Warnings:  warnings,
		KPIs:      kpis,
		DecidedAt: time.Now().UTC(),
	}

	if len(issues) > 0 {
		report.ValidationPassed = false
		metrics.RecordQualityGateDecision("rejected")
		return nil, report, pipelineerr.New(pipelineerr.QualityGateRejected, fmt.Sprintf("%d hard check(s) failed", len(issues)))
	}

	report.ValidationPassed = true
	metrics.RecordQualityGateDecision("accepted")
	manifest := g.buildManifest(projectID, topic, scene, media, audio, kpis)
	return manifest, report, nil
}

func (g *Gate) checkStructural(ctx context.Context, projectID string, scene *contextstore.SceneContext) []Issue {
	var issues []Issue
	layout := project.BuildLayout(projectID)

	for _, folder := range project.TopLevelFolders() {
		ok, err := g.objects.PrefixExists(ctx, projectID, folder)
		if err != nil || !ok {
			issues = append(issues, Issue{Rule: "folder_missing", Path: folder, Severity: SeverityError})
		}
	}

	if ok, _ := g.objects.Exists(ctx, projectID, layout.ScriptFile); !ok {
		issues = append(issues, Issue{Rule: "script_missing", Path: layout.ScriptFile, Severity: SeverityError})
	}
	if ok, _ := g.objects.Exists(ctx, projectID, layout.NarrationMP3); !ok {
		issues = append(issues, Issue{Rule: "narration_missing", Path: layout.NarrationMP3, Severity: SeverityError})
	}

	for _, sc := range scene.Scenes {
		segPath := layout.AudioSegmentFile(sc.SceneNumber)
		if ok, _ := g.objects.Exists(ctx, projectID, segPath); !ok {
			issues = append(issues, Issue{Rule: "audio_segment_missing", Path: segPath, Severity: SeverityError})
		}

		imagesDir := sc.SceneNumber
		visuals, _ := g.objects.List(ctx, projectID, layout.SceneImagesDir(imagesDir))
		count := 0
		for _, v := range visuals {
			if project.IsVisualFile(v) {
				count++
			}
		}
		if g.opts.MinVisuals > 0 && count < g.opts.MinVisuals {
			issues = append(issues, Issue{
				Rule:     "min_visuals",
				Path:     layout.SceneImagesDir(imagesDir) + "/",
				Severity: SeverityError,
				Detail:   fmt.Sprintf("found %d, need >= %d", count, g.opts.MinVisuals),
			})
		}
	}
	return issues
}

func (g *Gate) checkConsistency(scene *contextstore.SceneContext, media *contextstore.MediaContext, audio *contextstore.AudioContext) (issues, warnings []Issue) {
	if len(scene.Scenes) != len(audio.Segments) {
		issues = append(issues, Issue{
			Rule: "audio_segments_count", Path: "04-audio/audio-segments", Severity: SeverityError,
			Detail: "audio_segments_count != scenes_count",
		})
	}

	sceneNums := make(map[int]bool, len(scene.Scenes))
	for _, sc := range scene.Scenes {
		sceneNums[sc.SceneNumber] = true
	}
	mediaNums := make(map[int]bool, len(media.SceneMediaMapping))
	for n := range media.SceneMediaMapping {
		mediaNums[n] = true
	}

	if !sameKeySet(sceneNums, mediaNums) {
		issues = append(issues, Issue{Rule: "media_scene_numbers_mismatch", Path: "03-media", Severity: SeverityError})
	} else if len(media.SceneMediaMapping) != len(scene.Scenes) {
		warnings = append(warnings, Issue{Rule: "media_count_differs", Path: "03-media", Severity: SeverityWarning})
	}
	return issues, warnings
}

func sameKeySet(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func (g *Gate) checkQuantitative(scene *contextstore.SceneContext, audio *contextstore.AudioContext) []Issue {
	var sum float64
	for _, sc := range scene.Scenes {
		sum += sc.Duration
	}
	tolerance := math.Max(sum*g.opts.DurationTolerancePct, g.opts.DurationToleranceMinSec)
	drift := math.Abs(sum - audio.TotalDuration)
	if drift > tolerance {
		return []Issue{{
			Rule: "duration_drift", Path: "04-audio", Severity: SeverityError,
			Detail: fmt.Sprintf("scene total %.2fs vs audio total %.2fs exceeds tolerance %.2fs", sum, audio.TotalDuration, tolerance),
		}}
	}
	return nil
}

func (g *Gate) checkSoftWarnings(topic *contextstore.TopicContext, scene *contextstore.SceneContext) []Issue {
	var warnings []Issue
	if len(topic.SEOContext.PrimaryKeywords) == 0 {
		warnings = append(warnings, Issue{Rule: "missing_seo_tags", Path: "01-context/topic", Severity: SeverityWarning})
	}
	if len(scene.Scenes) > 0 {
		hook := scene.Scenes[0].Duration
		if scene.TotalDuration > 0 && hook/scene.TotalDuration > 0.15 {
			warnings = append(warnings, Issue{Rule: "hook_too_long", Path: "02-script", Severity: SeverityWarning})
		}
	}
	return warnings
}

func (g *Gate) buildManifest(projectID string, topic *contextstore.TopicContext, scene *contextstore.SceneContext, media *contextstore.MediaContext, audio *contextstore.AudioContext, kpis map[string]any) *contextstore.ManifestContext {
	chapters := make([]contextstore.ManifestChapter, 0, len(scene.Scenes))
	scenes := make([]contextstore.ManifestScene, 0, len(scene.Scenes))

	sceneNums := make([]int, 0, len(scene.Scenes))
	for _, sc := range scene.Scenes {
		sceneNums = append(sceneNums, sc.SceneNumber)
	}
	sort.Ints(sceneNums)

	bySceneNumber := make(map[int]contextstore.Scene, len(scene.Scenes))
	for _, sc := range scene.Scenes {
		bySceneNumber[sc.SceneNumber] = sc
	}
	segByScene := make(map[int]contextstore.AudioSegment, len(audio.Segments))
	for _, seg := range audio.Segments {
		segByScene[seg.SceneNumber] = seg
	}

	for _, n := range sceneNums {
		sc := bySceneNumber[n]
		chapters = append(chapters, contextstore.ManifestChapter{StartSeconds: sc.StartTime, Label: fmt.Sprintf("Scene %d", n)})

		var visuals []contextstore.ManifestVisual
		for _, asset := range media.SceneMediaMapping[n] {
			visuals = append(visuals, contextstore.ManifestVisual{Type: "image", StorageKey: asset.StorageKey, DurationHint: asset.DurationHint})
		}

		seg := segByScene[n]
		scenes = append(scenes, contextstore.ManifestScene{
			ID:           fmt.Sprintf("scene-%d", n),
			Script:       sc.Script,
			AudioRef:     seg.StorageKey,
			DurationHint: sc.Duration,
			Visuals:      visuals,
		})
	}

	return &contextstore.ManifestContext{
		ProjectID:  projectID,
		VideoID:    projectID,
		Title:      topic.SelectedTopic,
		Visibility: "public",
		Chapters:   chapters,
		Scenes:     scenes,
		Export:     contextstore.ManifestExport{Resolution: "1920x1080", FPS: 30, Codec: "h264", Preset: "medium"},
		Upload:     contextstore.ManifestUpload{Visibility: "public", Title: topic.SelectedTopic},
		Metadata:   contextstore.ManifestMeta{KPIs: kpis},
	}
}

// Persist writes the gate's outcome to the object store and, on success, to
// the Context Store (spec §6): manifest.json + project-summary.json on
// approval, validation-report.json on rejection.
func (g *Gate) Persist(ctx context.Context, projectID string, manifest *contextstore.ManifestContext, report *Report) error {
	layout := project.BuildLayout(projectID)

	if manifest == nil {
		body, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return pipelineerr.Wrap(pipelineerr.Backend, "marshal validation report", err)
		}
		return g.objects.Put(ctx, projectID, layout.ValidationReportFile, body)
	}

	if _, err := g.contexts.Put(ctx, projectID, contextstore.TypeManifest, manifest); err != nil {
		return err
	}
	manifestBody, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.Backend, "marshal manifest", err)
	}
	if err := g.objects.Put(ctx, projectID, layout.ManifestFile, manifestBody); err != nil {
		return err
	}

	summary := map[string]any{
		"project":          projectID,
		"timestamp":        report.DecidedAt,
		"kpis":             report.KPIs,
		"validationPassed": true,
	}
	summaryBody, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.Backend, "marshal project summary", err)
	}
	return g.objects.Put(ctx, projectID, layout.ProjectSummaryFile, summaryBody)
}
