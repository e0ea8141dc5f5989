// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config is the single, immutable configuration surface for the
// orchestration core (spec §9): one Config struct, read once from the
// environment at startup and passed by value into every constructor. No
// component reaches for an ambient global config.
package config

import (
	"fmt"
	"time"

	"github.com/reelforge/pipelinecore/internal/pipelineerr"
	"github.com/reelforge/pipelinecore/internal/stage"
)

// Config is the full set of knobs the core reads at startup (spec §6, §9).
type Config struct {
	// Storage
	ObjectStoreRoot string
	RedisAddress    string
	BadgerDataDir   string
	Region          string

	// Context Store
	SmallCtxBytes     int
	ContextTTLInline  time.Duration
	ContextTTLBlob    time.Duration

	// Quality Gate
	MinVisuals              int
	DurationTolerancePct    float64
	DurationToleranceMinSec float64

	// Run Coordinator
	RunTimeout   time.Duration
	CancelGrace  time.Duration
	RetryPolicy  stage.RetryPolicy

	// Scheduler Front-End
	SchedulerConcurrency int
	TopicSourcePath      string

	// HTTP API
	HTTPListenAddr string
}

// Default returns the spec's suggested defaults (spec §9: "MUST NOT rely on
// process-wide state"; this value is never read ambiently, only passed
// explicitly into Load's caller or used directly by tests).
func Default() Config {
	return Config{
		ObjectStoreRoot:         "./data/objects",
		RedisAddress:            "localhost:6379",
		BadgerDataDir:           "./data/badger",
		Region:                  "local",
		SmallCtxBytes:           100 * 1024,
		ContextTTLInline:        7 * 24 * time.Hour,
		ContextTTLBlob:          30 * 24 * time.Hour,
		MinVisuals:              3,
		DurationTolerancePct:    0.02,
		DurationToleranceMinSec: 3,
		RunTimeout:              15 * time.Minute,
		CancelGrace:             5 * time.Second,
		RetryPolicy:             stage.DefaultRetryPolicy(),
		SchedulerConcurrency:    1,
		HTTPListenAddr:          ":8080",
	}
}

// Load reads Config from the process environment, falling back to Default()
// for any key left unset (spec §9's "single Config struct read once at
// startup"). It never mutates global state and never reads os.Environ again
// afterward.
func Load() (Config, error) {
	cfg := Default()

	cfg.ObjectStoreRoot = envString("PIPELINECORE_OBJECT_STORE_ROOT", cfg.ObjectStoreRoot)
	cfg.RedisAddress = envString("PIPELINECORE_REDIS_ADDRESS", cfg.RedisAddress)
	cfg.BadgerDataDir = envString("PIPELINECORE_BADGER_DATA_DIR", cfg.BadgerDataDir)
	cfg.Region = envString("PIPELINECORE_REGION", cfg.Region)

	cfg.SmallCtxBytes = envInt("PIPELINECORE_SMALL_CTX_BYTES", cfg.SmallCtxBytes)
	cfg.ContextTTLInline = envDuration("PIPELINECORE_CONTEXT_TTL_INLINE", cfg.ContextTTLInline)
	cfg.ContextTTLBlob = envDuration("PIPELINECORE_CONTEXT_TTL_BLOB", cfg.ContextTTLBlob)

	cfg.MinVisuals = envInt("PIPELINECORE_MIN_VISUALS", cfg.MinVisuals)
	cfg.DurationTolerancePct = envFloat("PIPELINECORE_DURATION_TOLERANCE_PCT", cfg.DurationTolerancePct)
	cfg.DurationToleranceMinSec = envFloat("PIPELINECORE_DURATION_TOLERANCE_MIN_SEC", cfg.DurationToleranceMinSec)

	cfg.RunTimeout = envDuration("PIPELINECORE_RUN_TIMEOUT", cfg.RunTimeout)
	cfg.CancelGrace = envDuration("PIPELINECORE_CANCEL_GRACE", cfg.CancelGrace)
	cfg.RetryPolicy.MaxAttempts = envInt("PIPELINECORE_RETRY_MAX_ATTEMPTS", cfg.RetryPolicy.MaxAttempts)
	cfg.RetryPolicy.BaseDelay = envDuration("PIPELINECORE_RETRY_BASE_DELAY", cfg.RetryPolicy.BaseDelay)
	cfg.RetryPolicy.MaxDelay = envDuration("PIPELINECORE_RETRY_MAX_DELAY", cfg.RetryPolicy.MaxDelay)

	cfg.SchedulerConcurrency = envInt("PIPELINECORE_SCHEDULER_CONCURRENCY", cfg.SchedulerConcurrency)
	cfg.TopicSourcePath = envString("PIPELINECORE_TOPIC_SOURCE_PATH", cfg.TopicSourcePath)

	cfg.HTTPListenAddr = envString("PIPELINECORE_HTTP_LISTEN_ADDR", cfg.HTTPListenAddr)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the invariants the rest of the core assumes hold for any
// Config it's handed, whether loaded from the environment or built by hand
// in a test.
func Validate(cfg Config) error {
	if cfg.SmallCtxBytes <= 0 {
		return pipelineerr.New(pipelineerr.Config, "SmallCtxBytes must be positive")
	}
	if cfg.MinVisuals < 0 {
		return pipelineerr.New(pipelineerr.Config, "MinVisuals must not be negative")
	}
	if cfg.RunTimeout <= 0 {
		return pipelineerr.New(pipelineerr.Config, "RunTimeout must be positive")
	}
	if cfg.SchedulerConcurrency <= 0 {
		return pipelineerr.New(pipelineerr.Config, "SchedulerConcurrency must be positive")
	}
	if cfg.ObjectStoreRoot == "" {
		return pipelineerr.New(pipelineerr.Config, "ObjectStoreRoot must not be empty")
	}
	return nil
}

// String renders cfg for diagnostic logging, safe for display (spec §7:
// "no secrets... messages are safe for display" — this domain's config
// carries no credentials, only addresses and thresholds).
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{objectStoreRoot=%s redis=%s badger=%s minVisuals=%d smallCtxBytes=%d runTimeout=%s schedulerConcurrency=%d}",
		c.ObjectStoreRoot, c.RedisAddress, c.BadgerDataDir, c.MinVisuals, c.SmallCtxBytes, c.RunTimeout, c.SchedulerConcurrency,
	)
}
