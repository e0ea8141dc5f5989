// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package planner is the Dependency Planner: given the fixed pipeline DAG,
// it produces a wave schedule (spec §4.4).
package planner

import (
	"sort"

	"github.com/reelforge/pipelinecore/internal/stage"
)

// dependencies is the fixed DAG from spec §4.3: each stage's direct
// predecessors. QualityGate depends on every asset-producing stage;
// Assembler and Publisher form the admitted tail.
var dependencies = map[stage.Name][]stage.Name{
	stage.NameTopicPlanner: {},
	stage.NameScriptWriter: {stage.NameTopicPlanner},
	stage.NameMediaCurator: {stage.NameScriptWriter},
	stage.NameAudioSynth:   {stage.NameScriptWriter},
	stage.NameQualityGate:  {stage.NameMediaCurator, stage.NameAudioSynth},
	stage.NameAssembler:    {stage.NameQualityGate},
	stage.NamePublisher:    {stage.NameAssembler},
}

// AllStages lists every stage in the fixed DAG.
func AllStages() []stage.Name {
	names := make([]stage.Name, 0, len(dependencies))
	for n := range dependencies {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// DependenciesOf returns the direct predecessors of name.
func DependenciesOf(name stage.Name) []stage.Name {
	deps := dependencies[name]
	out := make([]stage.Name, len(deps))
	copy(out, deps)
	return out
}

// Wave is a maximal set of stages the Run Coordinator may launch
// concurrently; launch order within a wave is the lexicographic Name order
// (spec §4.4's tie-break).
type Wave struct {
	Stages []stage.Name
}

// Plan computes the full wave schedule for the fixed DAG: topological order
// with a concurrency relation (two stages are concurrent iff neither is an
// ancestor/descendant of the other).
func Plan() []Wave {
	remaining := make(map[stage.Name]bool, len(dependencies))
	for n := range dependencies {
		remaining[n] = true
	}
	satisfied := make(map[stage.Name]bool, len(dependencies))

	var waves []Wave
	for len(remaining) > 0 {
		var ready []stage.Name
		for n := range remaining {
			if allSatisfied(dependencies[n], satisfied) {
				ready = append(ready, n)
			}
		}
		if len(ready) == 0 {
			// Unreachable for the fixed DAG above; guards against a future
			// cyclic edit silently producing an empty schedule.
			break
		}
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		waves = append(waves, Wave{Stages: ready})
		for _, n := range ready {
			delete(remaining, n)
			satisfied[n] = true
		}
	}
	return waves
}

func allSatisfied(deps []stage.Name, satisfied map[stage.Name]bool) bool {
	for _, d := range deps {
		if !satisfied[d] {
			return false
		}
	}
	return true
}

// Descendants returns every stage transitively depending on name, used to
// propagate `skipped` status when name fails or times out (spec §4.4).
func Descendants(name stage.Name) []stage.Name {
	var out []stage.Name
	for _, n := range AllStages() {
		if dependsOnTransitively(n, name, map[stage.Name]bool{}) {
			out = append(out, n)
		}
	}
	return out
}

func dependsOnTransitively(n, target stage.Name, visiting map[stage.Name]bool) bool {
	if visiting[n] {
		return false
	}
	visiting[n] = true
	for _, d := range dependencies[n] {
		if d == target {
			return true
		}
		if dependsOnTransitively(d, target, visiting) {
			return true
		}
	}
	return false
}
