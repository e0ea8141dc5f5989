// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scheduler

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/reelforge/pipelinecore/internal/log"
	"github.com/reelforge/pipelinecore/internal/metrics"
	"github.com/reelforge/pipelinecore/internal/runcoordinator"
)

// RunStarter is the narrow Run Coordinator surface the scheduler depends on.
type RunStarter interface {
	StartRun(ctx context.Context, opts runcoordinator.StartRunOptions) (*runcoordinator.RunRecord, error)
}

// Config carries the scheduler's tunables (spec §4.7).
type Config struct {
	// ConcurrencyCap bounds the number of runs this scheduler will have
	// in flight at once; excess ticks are throttled, never queued.
	ConcurrencyCap int
}

// DefaultConfig matches the spec's suggested default of one concurrent run.
func DefaultConfig() Config {
	return Config{ConcurrencyCap: 1}
}

// Scheduler translates triggers into Run Coordinator StartRun calls,
// selecting topics from a TopicSource and enforcing a concurrency cap (spec
// §4.7).
type Scheduler struct {
	source  TopicSource
	coord   RunStarter
	cfg     Config
	limiter *rate.Limiter

	active atomic.Int32

	mu      sync.Mutex
	history []AuditRecord
}

// New constructs a Scheduler. limiter caps the *rate* at which ticks are
// admitted for topic-selection work (back-pressure at the ingestion
// boundary); active-run concurrency is capped separately via cfg.ConcurrencyCap.
func New(source TopicSource, coord RunStarter, cfg Config) *Scheduler {
	if cfg.ConcurrencyCap <= 0 {
		cfg = DefaultConfig()
	}
	return &Scheduler{
		source:  source,
		coord:   coord,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.ConcurrencyCap), cfg.ConcurrencyCap),
	}
}

// History returns every audit record emitted so far, oldest first.
func (s *Scheduler) History() []AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditRecord, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Scheduler) audit(rec AuditRecord) AuditRecord {
	s.mu.Lock()
	s.history = append(s.history, rec)
	s.mu.Unlock()
	metrics.RecordSchedulerTick(string(rec.Outcome))
	logger := log.WithComponent("scheduler")
	logger.Info().Str("outcome", string(rec.Outcome)).Str("topic", rec.Topic).Str("reason", rec.Reason).Msg("scheduler decision")
	return rec
}

// OnScheduledTick handles a timer-driven trigger: selects the
// highest-priority eligible topic, marks it used, and starts a run. A nil
// *runcoordinator.RunRecord with a Throttled or NoEligible AuditRecord means
// no run was started (spec §4.7, §8 scenario 5).
func (s *Scheduler) OnScheduledTick(ctx context.Context, tick ScheduledTick) (*runcoordinator.RunRecord, AuditRecord) {
	now := tick.ScheduledAt
	if now.IsZero() {
		now = time.Now()
	}

	if !s.limiter.Allow() {
		return nil, s.audit(AuditRecord{Outcome: AuditThrottled, Reason: "tick rate exceeded", At: now})
	}
	if int(s.active.Load()) >= s.cfg.ConcurrencyCap {
		return nil, s.audit(AuditRecord{Outcome: AuditThrottled, Reason: "concurrency cap reached", At: now})
	}

	records, err := s.source.List(ctx)
	if err != nil {
		return nil, s.audit(AuditRecord{Outcome: AuditThrottled, Reason: "topic source unavailable: " + err.Error(), At: now})
	}

	topic, ok := selectTopic(records, now.UTC())
	if !ok {
		return nil, s.audit(AuditRecord{Outcome: AuditNoEligible, Reason: "no eligible topic", At: now})
	}

	if err := s.source.MarkUsed(ctx, topic.Topic, now); err != nil {
		return nil, s.audit(AuditRecord{Outcome: AuditThrottled, Topic: topic.Topic, Reason: "mark-used failed: " + err.Error(), At: now})
	}

	s.active.Add(1)
	defer s.active.Add(-1)
	record, err := s.coord.StartRun(ctx, runcoordinator.StartRunOptions{Topic: topic.Topic, Trigger: runcoordinator.TriggerScheduled})
	if err != nil {
		return nil, s.audit(AuditRecord{Outcome: AuditThrottled, Topic: topic.Topic, Reason: "start run failed: " + err.Error(), At: now})
	}
	return record, s.audit(AuditRecord{Outcome: AuditStarted, Topic: topic.Topic, At: now})
}

// OnManualTrigger handles an on-demand trigger, bypassing topic selection
// but still respecting the concurrency cap.
func (s *Scheduler) OnManualTrigger(ctx context.Context, trig ManualTrigger) (*runcoordinator.RunRecord, AuditRecord) {
	now := time.Now()
	if int(s.active.Load()) >= s.cfg.ConcurrencyCap {
		return nil, s.audit(AuditRecord{Outcome: AuditThrottled, Topic: trig.Topic, Reason: "concurrency cap reached", At: now})
	}

	s.active.Add(1)
	defer s.active.Add(-1)
	record, err := s.coord.StartRun(ctx, runcoordinator.StartRunOptions{
		Topic: trig.Topic, TargetAudience: trig.TargetAudience, VideoDuration: trig.VideoDuration, Trigger: runcoordinator.TriggerManual,
	})
	if err != nil {
		return nil, s.audit(AuditRecord{Outcome: AuditThrottled, Topic: trig.Topic, Reason: "start run failed: " + err.Error(), At: now})
	}
	return record, s.audit(AuditRecord{Outcome: AuditStarted, Topic: trig.Topic, At: now})
}

// selectTopic picks the highest-priority record whose daily quota is not
// exhausted and whose lastUsed is not today (UTC). Ties break by the
// record's position in the source's declared order (spec §4.7).
func selectTopic(records []TopicRecord, now time.Time) (TopicRecord, bool) {
	eligible := make([]TopicRecord, 0, len(records))
	for _, r := range records {
		if !isEligible(r, now) {
			continue
		}
		eligible = append(eligible, r)
	}
	if len(eligible) == 0 {
		return TopicRecord{}, false
	}
	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].Priority > eligible[j].Priority })
	return eligible[0], true
}

func isEligible(r TopicRecord, now time.Time) bool {
	if r.DailyFrequency <= 0 {
		return false
	}
	if r.LastUsed == nil {
		return true
	}
	last := r.LastUsed.UTC()
	return last.Year() != now.Year() || last.YearDay() != now.YearDay()
}
