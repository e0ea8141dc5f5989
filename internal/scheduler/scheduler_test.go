// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/pipelinecore/internal/runcoordinator"
)

// memoryTopicSource is an in-process TopicSource for tests.
type memoryTopicSource struct {
	mu      sync.Mutex
	records []TopicRecord
}

func (m *memoryTopicSource) List(_ context.Context) ([]TopicRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TopicRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memoryTopicSource) MarkUsed(_ context.Context, topic string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].Topic == topic {
			m.records[i].LastUsed = &at
		}
	}
	return nil
}

// stubCoordinator records StartRun calls and returns a canned record.
type stubCoordinator struct {
	mu    sync.Mutex
	calls []runcoordinator.StartRunOptions
}

func (s *stubCoordinator) StartRun(_ context.Context, opts runcoordinator.StartRunOptions) (*runcoordinator.RunRecord, error) {
	s.mu.Lock()
	s.calls = append(s.calls, opts)
	s.mu.Unlock()
	return &runcoordinator.RunRecord{ExecutionID: "exec-1", ProjectID: "proj-1", Topic: opts.Topic, Status: runcoordinator.RunSucceeded}, nil
}

func TestOnScheduledTick_SelectsHighestPriorityEligibleTopic(t *testing.T) {
	source := &memoryTopicSource{records: []TopicRecord{
		{Topic: "low", DailyFrequency: 1, Priority: 1},
		{Topic: "high", DailyFrequency: 1, Priority: 10},
	}}
	coord := &stubCoordinator{}
	s := New(source, coord, Config{ConcurrencyCap: 2})

	record, audit := s.OnScheduledTick(context.Background(), ScheduledTick{RuleName: "daily", ScheduledAt: time.Now()})
	require.NotNil(t, record)
	assert.Equal(t, AuditStarted, audit.Outcome)
	assert.Equal(t, "high", audit.Topic)
	require.Len(t, coord.calls, 1)
	assert.Equal(t, "high", coord.calls[0].Topic)
}

func TestOnScheduledTick_QuotaExhaustedIsNoOpAndLastUsedUnchanged(t *testing.T) {
	today := time.Now().UTC()
	source := &memoryTopicSource{records: []TopicRecord{
		{Topic: "X", DailyFrequency: 1, Priority: 1, LastUsed: &today},
	}}
	coord := &stubCoordinator{}
	s := New(source, coord, Config{ConcurrencyCap: 2})

	record, audit := s.OnScheduledTick(context.Background(), ScheduledTick{RuleName: "daily", ScheduledAt: time.Now()})
	assert.Nil(t, record)
	assert.Equal(t, AuditNoEligible, audit.Outcome)
	assert.Empty(t, coord.calls)

	records, _ := source.List(context.Background())
	require.Len(t, records, 1)
	assert.True(t, records[0].LastUsed.Equal(today))
}

func TestOnScheduledTick_ConcurrencyCapThrottlesExcessTicks(t *testing.T) {
	source := &memoryTopicSource{records: []TopicRecord{{Topic: "X", DailyFrequency: 1, Priority: 1}}}
	coord := &stubCoordinator{}
	s := New(source, coord, Config{ConcurrencyCap: 1})
	s.active.Store(1) // simulate one run already in flight

	record, audit := s.OnScheduledTick(context.Background(), ScheduledTick{RuleName: "daily", ScheduledAt: time.Now()})
	assert.Nil(t, record)
	assert.Equal(t, AuditThrottled, audit.Outcome)
	assert.Empty(t, coord.calls)
}

func TestOnManualTrigger_BypassesSelection(t *testing.T) {
	source := &memoryTopicSource{}
	coord := &stubCoordinator{}
	s := New(source, coord, Config{ConcurrencyCap: 1})

	record, audit := s.OnManualTrigger(context.Background(), ManualTrigger{Topic: "ad-hoc topic"})
	require.NotNil(t, record)
	assert.Equal(t, AuditStarted, audit.Outcome)
	require.Len(t, coord.calls, 1)
	assert.Equal(t, runcoordinator.TriggerManual, coord.calls[0].Trigger)
}

func TestValidateCronExpression(t *testing.T) {
	assert.NoError(t, ValidateCronExpression(""))
	assert.NoError(t, ValidateCronExpression("0 9 * * *"))
	assert.Error(t, ValidateCronExpression("not a cron expression"))
}
