// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/pipelinecore/internal/stage"
)

func TestPlan_ProducesExpectedWaveShape(t *testing.T) {
	waves := Plan()
	require.Len(t, waves, 6)

	assert.Equal(t, []stage.Name{stage.NameTopicPlanner}, waves[0].Stages)
	assert.Equal(t, []stage.Name{stage.NameScriptWriter}, waves[1].Stages)
	assert.Equal(t, []stage.Name{stage.NameAudioSynth, stage.NameMediaCurator}, waves[2].Stages, "lexicographic tie-break within a wave")
	assert.Equal(t, []stage.Name{stage.NameQualityGate}, waves[3].Stages)
	assert.Equal(t, []stage.Name{stage.NameAssembler}, waves[4].Stages)
	assert.Equal(t, []stage.Name{stage.NamePublisher}, waves[5].Stages)
}

func TestPlan_PublisherIsFinalWave(t *testing.T) {
	waves := Plan()
	last := waves[len(waves)-1]
	// Assembler must complete (and be sealed as its own wave) before
	// Publisher; verify Publisher appears in a strictly later wave.
	publisherWave := -1
	assemblerWave := -1
	for i, w := range waves {
		for _, s := range w.Stages {
			if s == stage.NamePublisher {
				publisherWave = i
			}
			if s == stage.NameAssembler {
				assemblerWave = i
			}
		}
	}
	if publisherWave == -1 {
		t.Fatalf("publisher not scheduled in %v", waves)
	}
	assert.Greater(t, publisherWave, assemblerWave)
	assert.Contains(t, last.Stages, stage.NamePublisher)
}

func TestDescendants_MediaCuratorFailurePropagatesThroughGate(t *testing.T) {
	desc := Descendants(stage.NameMediaCurator)
	assert.Contains(t, desc, stage.NameQualityGate)
	assert.Contains(t, desc, stage.NameAssembler)
	assert.Contains(t, desc, stage.NamePublisher)
	assert.NotContains(t, desc, stage.NameAudioSynth)
}

func TestAllStages_ContainsFixedSevenStages(t *testing.T) {
	all := AllStages()
	assert.Len(t, all, 7)
}
