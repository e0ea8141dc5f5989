// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package project implements the Project Registry: ProjectId allocation and
// the fixed object-store folder layout (spec §3, §4.2).
package project

import "fmt"

// Layout is the pure computation of every well-known path for a project.
// Exact paths are part of the external interface and must not be reshaped
// by any component other than the registry.
type Layout struct {
	ProjectID string

	ContextDir  string
	ScriptDir   string
	ScriptFile  string
	MediaDir    string
	AudioDir    string
	AudioSegDir string
	NarrationMP3 string
	VideoDir    string
	VideoLogDir string
	MetadataDir string

	ManifestFile         string
	ValidationReportFile string
	ProjectSummaryFile   string
}

// topLevelFolders is the fixed, six-entry skeleton every project carries
// (spec §3). Order is stable so creation/verification is deterministic.
var topLevelFolders = []string{
	"01-context",
	"02-script",
	"03-media",
	"04-audio",
	"05-video",
	"06-metadata",
}

// BuildLayout computes every well-known path for projectID. This never
// touches storage; it is a pure function of the id.
func BuildLayout(projectID string) Layout {
	return Layout{
		ProjectID: projectID,

		ContextDir: "01-context",
		ScriptDir:  "02-script",
		ScriptFile: "02-script/script.json",
		MediaDir:   "03-media",
		AudioDir:   "04-audio",
		AudioSegDir:  "04-audio/audio-segments",
		NarrationMP3: "04-audio/narration.mp3",
		VideoDir:    "05-video",
		VideoLogDir: "05-video/processing-logs",
		MetadataDir: "06-metadata",

		ManifestFile:         "01-context/manifest.json",
		ValidationReportFile: "06-metadata/validation-report.json",
		ProjectSummaryFile:   "06-metadata/project-summary.json",
	}
}

// SceneImagesDir is the per-scene visual asset prefix, 03-media/scene-N/images/.
func (l Layout) SceneImagesDir(sceneNumber int) string {
	return fmt.Sprintf("%s/scene-%d/images", l.MediaDir, sceneNumber)
}

// SceneMediaDir is the per-scene media prefix without the images/ suffix.
func (l Layout) SceneMediaDir(sceneNumber int) string {
	return fmt.Sprintf("%s/scene-%d", l.MediaDir, sceneNumber)
}

// AudioSegmentFile is the per-scene audio segment object path.
func (l Layout) AudioSegmentFile(sceneNumber int) string {
	return fmt.Sprintf("%s/segment-%d.mp3", l.AudioSegDir, sceneNumber)
}

// TopLevelFolders returns the fixed six-entry skeleton.
func TopLevelFolders() []string {
	out := make([]string, len(topLevelFolders))
	copy(out, topLevelFolders)
	return out
}
