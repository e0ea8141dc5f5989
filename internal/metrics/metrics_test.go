// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveStage_IncrementsHistogramCount(t *testing.T) {
	before := testutil.CollectAndCount(StageDuration)
	ObserveStage("TopicPlanner", "succeeded", 10*time.Millisecond)
	after := testutil.CollectAndCount(StageDuration)
	assert.Greater(t, after, before-1)
}

func TestRecordRun_IncrementsCounterForStatus(t *testing.T) {
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("succeeded"))
	RecordRun("succeeded")
	after := testutil.ToFloat64(RunsTotal.WithLabelValues("succeeded"))
	assert.Equal(t, before+1, after)
}

func TestRecordQualityGateDecision_IncrementsCounterForOutcome(t *testing.T) {
	before := testutil.ToFloat64(QualityGateDecisions.WithLabelValues("rejected"))
	RecordQualityGateDecision("rejected")
	after := testutil.ToFloat64(QualityGateDecisions.WithLabelValues("rejected"))
	assert.Equal(t, before+1, after)
}

func TestRecordSchedulerTick_IncrementsCounterForOutcome(t *testing.T) {
	before := testutil.ToFloat64(SchedulerTicks.WithLabelValues("throttled"))
	RecordSchedulerTick("throttled")
	after := testutil.ToFloat64(SchedulerTicks.WithLabelValues("throttled"))
	assert.Equal(t, before+1, after)
}
