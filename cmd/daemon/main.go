// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command daemon runs the pipeline orchestration core as a long-lived
// service: HTTP API, scheduler front-end, and the underlying component
// registries, all wired from a single environment-driven Config.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/reelforge/pipelinecore/internal/config"
	"github.com/reelforge/pipelinecore/internal/contextstore"
	"github.com/reelforge/pipelinecore/internal/httpapi"
	xglog "github.com/reelforge/pipelinecore/internal/log"
	"github.com/reelforge/pipelinecore/internal/planner"
	"github.com/reelforge/pipelinecore/internal/project"
	"github.com/reelforge/pipelinecore/internal/qualitygate"
	"github.com/reelforge/pipelinecore/internal/runcoordinator"
	"github.com/reelforge/pipelinecore/internal/scheduler"
	"github.com/reelforge/pipelinecore/internal/stage"
	"github.com/reelforge/pipelinecore/internal/stage/refadapters"
	"github.com/reelforge/pipelinecore/internal/telemetry"
)

var (
	version = "v0.1.0"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Printf("pipelinecore %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{Level: "info", Service: "pipelinecore", Version: version})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Info().Str("config", cfg.String()).Msg("configuration loaded")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{Enabled: false, ServiceName: "pipelinecore", ServiceVersion: version})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	contextBackend, err := buildContextBackend(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build context store backend")
	}
	contextStore := contextstore.New(contextBackend, cfg.SmallCtxBytes, contextstore.TTLPolicy{
		Inline: cfg.ContextTTLInline,
		Blob:   cfg.ContextTTLBlob,
	})

	objectStore, err := project.NewFSObjectStore(cfg.ObjectStoreRoot)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open object store")
	}
	projects := project.NewRegistry(objectStore, logger)

	gate := qualitygate.New(contextStore, objectStore, qualitygate.Options{
		MinVisuals:              cfg.MinVisuals,
		RecommendedVisuals:      cfg.MinVisuals + 2,
		DurationTolerancePct:    cfg.DurationTolerancePct,
		DurationToleranceMinSec: cfg.DurationToleranceMinSec,
	})

	const stageTimeout = 10 * time.Second
	stages := stage.NewRegistry()
	stages.Register(refadapters.NewTopicPlanner(contextStore, stageTimeout))
	stages.Register(refadapters.NewScriptWriter(contextStore, stageTimeout))
	stages.Register(refadapters.NewMediaCurator(contextStore, objectStore, cfg.MinVisuals, stageTimeout))
	stages.Register(refadapters.NewAudioSynth(contextStore, objectStore, stageTimeout))
	stages.Register(refadapters.NewAssembler(contextStore, stageTimeout))
	stages.Register(refadapters.NewPublisher(contextStore, objectStore, stageTimeout))
	stages.Register(qualitygate.NewAdapter(gate, stageTimeout))
	logger.Info().Strs("stages", namesOf(planner.AllStages())).Msg("stage adapter registry populated")

	runs, err := runcoordinator.NewSQLiteRunStore(cfg.ObjectStoreRoot + "/runs.db")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open run store")
	}
	defer func() {
		if err := runs.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close run store")
		}
	}()
	coord := runcoordinator.New(projects, stages, runs, runcoordinator.Config{
		RunTimeout:   cfg.RunTimeout,
		CancelGrace:  cfg.CancelGrace,
		DefaultRetry: cfg.RetryPolicy,
	})

	if cfg.TopicSourcePath != "" {
		startScheduler(ctx, cfg, coord, logger)
	} else {
		logger.Warn().Msg("no topic source configured, scheduler front-end disabled")
	}

	apiServer := httpapi.NewServer(coord, runs, gate, projects, httpapi.DefaultConfig())
	mux := http.NewServeMux()
	mux.Handle("/", apiServer.Router())
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.HTTPListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("http api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http api server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http api graceful shutdown failed")
	}
}

func buildContextBackend(cfg config.Config, logger zerolog.Logger) (contextstore.Backend, error) {
	badger, err := contextstore.NewBadgerBackend(cfg.BadgerDataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open badger backend: %w", err)
	}
	redis, err := contextstore.NewRedisBackend(contextstore.RedisConfig{Addr: cfg.RedisAddress}, logger)
	if err != nil {
		return nil, fmt.Errorf("dial redis backend: %w", err)
	}
	return contextstore.CompositeBackend{Inline: redis, Blob: badger}, nil
}

func startScheduler(ctx context.Context, cfg config.Config, coord *runcoordinator.Coordinator, logger zerolog.Logger) {
	source, err := scheduler.NewYAMLTopicSource(cfg.TopicSourcePath)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.TopicSourcePath).Msg("failed to load topic source, scheduler disabled")
		return
	}
	if err := source.Watch(ctx); err != nil {
		logger.Warn().Err(err).Msg("topic source hot-reload watch failed to start")
	}
	sched := scheduler.New(source, coord, scheduler.Config{ConcurrencyCap: cfg.SchedulerConcurrency})
	_ = sched // wired for future timer-driven trigger transport (spec Non-goal: core does not run its own ticker)
	logger.Info().Str("topic_source", cfg.TopicSourcePath).Msg("scheduler front-end ready")
}

func namesOf(names []stage.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
