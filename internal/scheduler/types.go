// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package scheduler is the Scheduler Front-End: it translates timer-driven
// and on-demand triggers into Run Coordinator StartRun calls, selecting a
// topic from a configured source and enforcing a concurrency cap (spec
// §4.7).
package scheduler

import "time"

// TopicRecord is one candidate topic the scheduler may select on a
// scheduled tick (spec §6's topic source contract).
type TopicRecord struct {
	Topic          string     `yaml:"topic" json:"topic"`
	DailyFrequency int        `yaml:"dailyFrequency" json:"dailyFrequency"`
	LastUsed       *time.Time `yaml:"lastUsed,omitempty" json:"lastUsed,omitempty"`
	Priority       int        `yaml:"priority" json:"priority"`
}

// Selector narrows a scheduled tick to a category/priority, per spec §6's
// scheduled-trigger contract.
type Selector struct {
	Category string
	Priority int
}

// ScheduledTick is a timer-driven trigger event (spec §6).
type ScheduledTick struct {
	RuleName    string
	ScheduledAt time.Time
	Selector    *Selector
}

// ManualTrigger is an on-demand trigger carrying an explicit topic,
// bypassing topic selection (spec §4.7).
type ManualTrigger struct {
	Topic          string
	TargetAudience string
	VideoDuration  int
}

// AuditOutcome classifies what a tick resulted in, for audit logging.
type AuditOutcome string

const (
	AuditStarted    AuditOutcome = "started"
	AuditThrottled  AuditOutcome = "throttled"
	AuditNoEligible AuditOutcome = "no_eligible_topic"
)

// AuditRecord is the no-op-visible trace of one scheduler decision (spec
// §4.7: "excess ticks are dropped with a Throttled audit record, not
// queued").
type AuditRecord struct {
	Outcome AuditOutcome
	Topic   string
	Reason  string
	At      time.Time
}
