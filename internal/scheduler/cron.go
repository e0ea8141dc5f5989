// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scheduler

import (
	"github.com/robfig/cron/v3"

	"github.com/reelforge/pipelinecore/internal/pipelineerr"
)

// ValidateCronExpression checks that expr is a well-formed standard
// five-field cron expression, as carried on a `schedule` context's
// cronExpression field (spec §3). The Scheduler Front-End does not itself
// run a ticker against this expression — the scheduled-trigger transport is
// explicitly out of scope (spec §1) — it only validates the operator's
// input.
func ValidateCronExpression(expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return pipelineerr.Wrap(pipelineerr.Validation, "invalid cron expression", err)
	}
	return nil
}
