// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package backoffx provides the single jittered exponential backoff
// implementation used by both the Stage Adapter Registry (stage retries) and
// the Context Store (bounded retrieval retries).
package backoffx

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy mirrors spec §5's retry/backoff model: delay = baseDelay *
// 2^(attempt-1) + random(0, baseDelay), capped, with a small max attempt
// count.
type Policy struct {
	BaseDelay   time.Duration
	MaxAttempts int
	MaxDelay    time.Duration
}

// DefaultPolicy is the spec's suggested default: 3 attempts.
func DefaultPolicy() Policy {
	return Policy{BaseDelay: 200 * time.Millisecond, MaxAttempts: 3, MaxDelay: 5 * time.Second}
}

// Delay returns the jittered delay for the given 1-based attempt number.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultPolicy().BaseDelay
	}
	d := base * time.Duration(1<<uint(attempt-1))
	jitter := time.Duration(rand.Int63n(int64(base) + 1))
	d += jitter
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Run executes fn, retrying up to p.MaxAttempts times using backoff.v5's
// retry loop with our jittered, capped delay function. retryable decides
// whether a given error should be retried at all; non-retryable errors
// return immediately via backoff.Permanent.
func Run(ctx context.Context, p Policy, retryable func(error) bool, fn func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultPolicy().MaxAttempts
	}
	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		err := fn(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		if retryable != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(0)),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithNotify(func(err error, d time.Duration) {
			// Sleep for our own jittered delay instead of the constant
			// backoff's (which we deliberately pinned to zero above); this
			// keeps the exponential-with-jitter formula centralized here.
			sleep := p.Delay(attempt)
			select {
			case <-time.After(sleep):
			case <-ctx.Done():
			}
		}),
	)
	return err
}
