// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package contextstore

import (
	"fmt"
	"strings"

	"github.com/reelforge/pipelinecore/internal/pipelineerr"
)

// Document is the discriminated-union member every context type implements.
// Schema validation is an explicit function per variant (spec §9), not
// runtime introspection of a loosely-typed map.
type Document interface {
	contextType() Type
	projectID() string
	validate() error
}

func (d *TopicContext) contextType() Type { return TypeTopic }
func (d *TopicContext) projectID() string { return d.ProjectID }
func (d *TopicContext) validate() error {
	if strings.TrimSpace(d.SelectedTopic) == "" {
		return fieldErr("selectedTopic", "required")
	}
	if len(d.ExpandedTopics) == 0 {
		return fieldErr("expandedTopics", "must be non-empty")
	}
	if d.VideoStructure.RecommendedScenes <= 0 {
		return fieldErr("videoStructure.recommendedScenes", "must be numeric and > 0")
	}
	if len(d.SEOContext.PrimaryKeywords) == 0 {
		return fieldErr("seoContext.primaryKeywords", "must be non-empty")
	}
	return nil
}

func (d *SceneContext) contextType() Type { return TypeScene }
func (d *SceneContext) projectID() string { return d.ProjectID }
func (d *SceneContext) validate() error {
	if len(d.Scenes) == 0 {
		return fieldErr("scenes", "must be non-empty")
	}
	if d.TotalDuration <= 0 {
		return fieldErr("totalDuration", "must be > 0")
	}
	if strings.TrimSpace(d.SelectedSubtopic) == "" {
		return fieldErr("selectedSubtopic", "required")
	}
	seen := make(map[int]bool, len(d.Scenes))
	for i, s := range d.Scenes {
		if s.Duration <= 0 {
			return fieldErr(fmt.Sprintf("scenes[%d].duration", i), "must be > 0")
		}
		if s.SceneNumber != i+1 {
			return fieldErr("scenes", "must be 1-based and contiguous")
		}
		if seen[s.SceneNumber] {
			return fieldErr("scenes", "scene numbers must be unique")
		}
		seen[s.SceneNumber] = true
	}
	return nil
}

func (d *MediaContext) contextType() Type { return TypeMedia }
func (d *MediaContext) projectID() string { return d.ProjectID }
func (d *MediaContext) validate() error {
	if len(d.SceneMediaMapping) == 0 {
		return fieldErr("sceneMediaMapping", "must be non-empty")
	}
	if d.TotalAssets <= 0 {
		return fieldErr("totalAssets", "must be > 0")
	}
	return nil
}

func (d *AudioContext) contextType() Type { return TypeAudio }
func (d *AudioContext) projectID() string { return d.ProjectID }
func (d *AudioContext) validate() error {
	if strings.TrimSpace(d.MasterAudioID) == "" {
		return fieldErr("masterAudioId", "required")
	}
	if len(d.TimingMarks) == 0 {
		return fieldErr("timingMarks", "must be non-empty")
	}
	return nil
}

func (d *VideoContext) contextType() Type { return TypeVideo }
func (d *VideoContext) projectID() string { return d.ProjectID }
func (d *VideoContext) validate() error {
	if len(d.VideoMetadata) == 0 {
		return fieldErr("videoMetadata", "required")
	}
	if len(d.ProcessingResults) == 0 {
		return fieldErr("processingResults", "required")
	}
	return nil
}

func (d *ManifestContext) contextType() Type { return TypeManifest }
func (d *ManifestContext) projectID() string { return d.ProjectID }
func (d *ManifestContext) validate() error {
	if strings.TrimSpace(d.VideoID) == "" {
		return fieldErr("videoId", "required")
	}
	if len(d.Scenes) == 0 {
		return fieldErr("scenes", "must be non-empty")
	}
	return nil
}

func (d *ScheduleContext) contextType() Type { return TypeSchedule }
func (d *ScheduleContext) projectID() string { return d.ProjectID }
func (d *ScheduleContext) validate() error {
	if strings.TrimSpace(d.Topic) == "" {
		return fieldErr("topic", "required")
	}
	return nil
}

func fieldErr(path, rule string) error {
	return pipelineerr.New(pipelineerr.Validation, fmt.Sprintf("%s: %s", path, rule))
}

// validateAgainstKey enforces the cross-cutting invariant from spec §3:
// "projectId on every context equals its key's projectId".
func validateAgainstKey(projectID string, doc Document) error {
	if doc.projectID() != projectID {
		return pipelineerr.New(pipelineerr.Validation, "document projectId disagrees with store key")
	}
	return doc.validate()
}

// CompatibilityResult is the outcome of ValidateCompatibility (spec §4.1).
type CompatibilityResult struct {
	Compatible    bool
	MissingFields []string
}

// compatRequirements is the fixed compatibility table: for a given
// (srcType, tgtType) pair, the fields the source document must carry for the
// target stage to consume it.
var compatRequirements = map[Type]map[Type][]string{
	TypeTopic: {
		TypeScene: {"projectId", "videoStructure", "expandedTopics"},
	},
	TypeScene: {
		TypeMedia: {"projectId", "scenes"},
		TypeAudio: {"projectId", "scenes"},
	},
	TypeMedia: {
		TypeManifest: {"projectId", "sceneMediaMapping"},
	},
	TypeAudio: {
		TypeManifest: {"projectId", "masterAudioId", "timingMarks"},
	},
	TypeManifest: {
		TypeVideo: {"projectId", "scenes", "export"},
	},
}

// ValidateCompatibility consults the fixed compatibility table for
// (srcType, tgtType) and reports which of the required fields srcDoc is
// missing.
func ValidateCompatibility(srcDoc Document, srcType, tgtType Type) CompatibilityResult {
	required, ok := compatRequirements[srcType][tgtType]
	if !ok {
		return CompatibilityResult{Compatible: true}
	}
	missing := missingFields(srcDoc, required)
	return CompatibilityResult{Compatible: len(missing) == 0, MissingFields: missing}
}

func missingFields(doc Document, required []string) []string {
	var missing []string
	for _, f := range required {
		if !hasField(doc, f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// hasField is a small, explicit predicate per well-known field name rather
// than reflection, consistent with the "no runtime introspection" design
// note (spec §9).
func hasField(doc Document, field string) bool {
	switch d := doc.(type) {
	case *TopicContext:
		switch field {
		case "projectId":
			return d.ProjectID != ""
		case "videoStructure":
			return d.VideoStructure.RecommendedScenes > 0
		case "expandedTopics":
			return len(d.ExpandedTopics) > 0
		}
	case *SceneContext:
		switch field {
		case "projectId":
			return d.ProjectID != ""
		case "scenes":
			return len(d.Scenes) > 0
		}
	case *MediaContext:
		switch field {
		case "projectId":
			return d.ProjectID != ""
		case "sceneMediaMapping":
			return len(d.SceneMediaMapping) > 0
		}
	case *AudioContext:
		switch field {
		case "projectId":
			return d.ProjectID != ""
		case "masterAudioId":
			return d.MasterAudioID != ""
		case "timingMarks":
			return len(d.TimingMarks) > 0
		}
	case *ManifestContext:
		switch field {
		case "projectId":
			return d.ProjectID != ""
		case "scenes":
			return len(d.Scenes) > 0
		case "export":
			return d.Export.Codec != ""
		}
	}
	return false
}
