// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package contextstore is the durable, schema-validated, typed key/value
// store for per-project context documents (spec §4.1). A single Context
// type per contextType replaces the source's "enhanced vs basic context"
// duality: every optional, richer field lives on the same struct.
package contextstore

// Type enumerates the seven context document shapes. It is a closed set;
// new stages extend it here, not by introspecting arbitrary JSON.
type Type string

const (
	TypeTopic    Type = "topic"
	TypeScene    Type = "scene"
	TypeMedia    Type = "media"
	TypeAudio    Type = "audio"
	TypeVideo    Type = "video"
	TypeManifest Type = "manifest"
	TypeSchedule Type = "schedule"
)

// AllTypes lists every known context type, in a stable order.
func AllTypes() []Type {
	return []Type{TypeTopic, TypeScene, TypeMedia, TypeAudio, TypeVideo, TypeManifest, TypeSchedule}
}

// TopicContext is produced by TopicPlanner.
type TopicContext struct {
	ProjectID      string         `json:"projectId"`
	SelectedTopic  string         `json:"selectedTopic"`
	ExpandedTopics []string       `json:"expandedTopics"`
	VideoStructure VideoStructure `json:"videoStructure"`
	SEOContext     SEOContext     `json:"seoContext"`
}

type VideoStructure struct {
	HookSeconds       int `json:"hookSeconds"`
	MainSeconds       int `json:"mainSeconds"`
	ConclusionSeconds int `json:"conclusionSeconds"`
	RecommendedScenes int `json:"recommendedScenes"`
}

type SEOContext struct {
	PrimaryKeywords   []string `json:"primaryKeywords"`
	SecondaryKeywords []string `json:"secondaryKeywords,omitempty"`
}

// SceneContext is produced by ScriptWriter.
type SceneContext struct {
	ProjectID        string  `json:"projectId"`
	SelectedSubtopic string  `json:"selectedSubtopic"`
	Scenes           []Scene `json:"scenes"`
	TotalDuration    float64 `json:"totalDuration"`
}

type Scene struct {
	SceneNumber int              `json:"sceneNumber"`
	StartTime   float64          `json:"startTime"`
	Duration    float64          `json:"duration"`
	Script      string           `json:"script"`
	MediaNeeds  []MediaNeed      `json:"mediaNeeds,omitempty"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

type MediaNeed struct {
	Description string `json:"description"`
	Kind        string `json:"kind"` // "image" | "video"
}

// MediaContext is produced by MediaCurator.
type MediaContext struct {
	ProjectID         string               `json:"projectId"`
	SceneMediaMapping map[int][]MediaAsset `json:"sceneMediaMapping"`
	TotalAssets       int                  `json:"totalAssets"`
}

type MediaAsset struct {
	Source         string  `json:"source"`
	Provenance     string  `json:"provenance"`
	DurationHint   float64 `json:"durationHint"`
	Transition     string  `json:"transition,omitempty"`
	RelevanceScore float64 `json:"relevanceScore"`
	StorageKey     string  `json:"storageKey"`
}

// AudioContext is produced by AudioSynth.
type AudioContext struct {
	ProjectID     string              `json:"projectId"`
	MasterAudioID string              `json:"masterAudioId"`
	Segments      []AudioSegment      `json:"segments"`
	TotalDuration float64             `json:"totalDuration"`
	TimingMarks   []TimingMark        `json:"timingMarks"`
}

type AudioSegment struct {
	SceneNumber int     `json:"sceneNumber"`
	StorageKey  string  `json:"storageKey"`
	Duration    float64 `json:"duration"`
}

type TimingMark struct {
	SceneNumber int     `json:"sceneNumber,omitempty"`
	Word        string  `json:"word,omitempty"`
	AtSeconds   float64 `json:"atSeconds"`
}

// VideoContext is produced by Assembler.
type VideoContext struct {
	ProjectID         string            `json:"projectId"`
	OutputRef         string            `json:"outputRef"`
	Duration          float64           `json:"duration"`
	VideoMetadata     map[string]any    `json:"videoMetadata"`
	ProcessingResults map[string]any    `json:"processingResults"`
	ProcessingLogRefs []string          `json:"processingLogRefs,omitempty"`
}

// ManifestContext is the single-source-of-truth for assembly and publish
// (spec §4.5).
type ManifestContext struct {
	ProjectID  string             `json:"projectId"`
	VideoID    string             `json:"videoId"`
	Title      string             `json:"title"`
	Visibility string             `json:"visibility"`
	Chapters   []ManifestChapter  `json:"chapters"`
	Scenes     []ManifestScene    `json:"scenes"`
	Export     ManifestExport     `json:"export"`
	Upload     ManifestUpload     `json:"upload"`
	Metadata   ManifestMeta       `json:"metadata"`
}

type ManifestChapter struct {
	StartSeconds float64 `json:"startSeconds"`
	Label        string  `json:"label"`
}

type ManifestScene struct {
	ID           string           `json:"id"`
	Script       string           `json:"script"`
	AudioRef     string           `json:"audioRef"`
	DurationHint float64          `json:"durationHint"`
	Visuals      []ManifestVisual `json:"visuals"`
}

type ManifestVisual struct {
	Type         string  `json:"type"`
	StorageKey   string  `json:"storageKey"`
	DurationHint float64 `json:"durationHint"`
}

type ManifestExport struct {
	Resolution string `json:"resolution"`
	FPS        int    `json:"fps"`
	Codec      string `json:"codec"`
	Preset     string `json:"preset"`
}

type ManifestUpload struct {
	Visibility string `json:"visibility"`
	Title      string `json:"title"`
}

type ManifestMeta struct {
	KPIs map[string]any `json:"kpis"`
}

// ScheduleContext holds per-topic scheduling metadata (spec §3).
type ScheduleContext struct {
	ProjectID      string `json:"projectId"`
	Topic          string `json:"topic"`
	CronExpression string `json:"cronExpression,omitempty"`
	Priority       int    `json:"priority"`
	LastFiredUnix  int64  `json:"lastFiredUnix,omitempty"`
}
