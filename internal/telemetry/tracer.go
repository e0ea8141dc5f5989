// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package telemetry provides OpenTelemetry tracing for the pipeline
// orchestration core: one span per stage invocation and one per wave,
// tagged with project and execution identifiers.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP gRPC collector endpoint (e.g. "localhost:4317").
	Endpoint     string
	SamplingRate float64
}

// Provider manages the OpenTelemetry tracer provider's lifecycle.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// NewProvider creates and installs the global tracer provider. When
// cfg.Enabled is false it installs a no-op provider so callers never need
// to branch on whether tracing is active.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Provider{tp: nil}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create telemetry resource: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp grpc exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &Provider{tp: tp}, nil
}

// Shutdown flushes and stops the tracer provider, if one was started.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.tp.Shutdown(shutdownCtx)
}

const tracerName = "github.com/reelforge/pipelinecore"

// Tracer returns the package-wide tracer, installed globally by NewProvider
// (or a no-op tracer if NewProvider was never called).
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartWave opens a span covering one Dependency Planner wave's execution.
func StartWave(ctx context.Context, executionID, projectID string, waveIndex int, stages []string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "wave.execute",
		trace.WithAttributes(
			attribute.String("execution_id", executionID),
			attribute.String("project_id", projectID),
			attribute.Int("wave.index", waveIndex),
			attribute.StringSlice("wave.stages", stages),
		),
	)
}

// StartStage opens a span covering one attempt of a stage adapter
// invocation; each retry attempt gets its own span, tagged stage.attempt.
func StartStage(ctx context.Context, executionID, projectID, stageName string, attempt int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "stage.invoke",
		trace.WithAttributes(
			attribute.String("execution_id", executionID),
			attribute.String("project_id", projectID),
			attribute.String("stage.name", stageName),
			attribute.Int("stage.attempt", attempt),
		),
	)
}
