// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package contextstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSceneContext_Validate_RejectsNonContiguousNumbers(t *testing.T) {
	doc := &SceneContext{
		ProjectID:        "p1",
		SelectedSubtopic: "sub",
		TotalDuration:    10,
		Scenes: []Scene{
			{SceneNumber: 1, Duration: 5},
			{SceneNumber: 3, Duration: 5},
		},
	}
	require.Error(t, doc.validate())
}

func TestSceneContext_Validate_RejectsDuplicateNumbers(t *testing.T) {
	doc := &SceneContext{
		ProjectID:        "p1",
		SelectedSubtopic: "sub",
		TotalDuration:    10,
		Scenes: []Scene{
			{SceneNumber: 1, Duration: 5},
			{SceneNumber: 1, Duration: 5},
		},
	}
	require.Error(t, doc.validate())
}

func TestSceneContext_Validate_AcceptsContiguousOneBased(t *testing.T) {
	doc := &SceneContext{
		ProjectID:        "p1",
		SelectedSubtopic: "sub",
		TotalDuration:    10,
		Scenes: []Scene{
			{SceneNumber: 1, Duration: 5},
			{SceneNumber: 2, Duration: 5},
		},
	}
	require.NoError(t, doc.validate())
}

func TestValidateCompatibility_TopicToScene(t *testing.T) {
	topic := &TopicContext{
		ProjectID:      "p1",
		SelectedTopic:  "x",
		ExpandedTopics: []string{"x"},
		VideoStructure: VideoStructure{RecommendedScenes: 3},
		SEOContext:     SEOContext{PrimaryKeywords: []string{"x"}},
	}
	result := ValidateCompatibility(topic, TypeTopic, TypeScene)
	assert.True(t, result.Compatible)
	assert.Empty(t, result.MissingFields)
}

func TestValidateCompatibility_ReportsMissingFields(t *testing.T) {
	topic := &TopicContext{ProjectID: "p1"} // no videoStructure, no expandedTopics
	result := ValidateCompatibility(topic, TypeTopic, TypeScene)
	assert.False(t, result.Compatible)
	assert.Contains(t, result.MissingFields, "videoStructure")
	assert.Contains(t, result.MissingFields, "expandedTopics")
}

func TestValidateCompatibility_UnknownPairIsTriviallyCompatible(t *testing.T) {
	doc := &ScheduleContext{ProjectID: "p1", Topic: "t"}
	result := ValidateCompatibility(doc, TypeSchedule, TypeVideo)
	assert.True(t, result.Compatible)
}
