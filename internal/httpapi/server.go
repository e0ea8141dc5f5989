// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package httpapi exposes the submit-run, run-status, and validate
// operations over HTTP, per spec.md §6's External Interfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/reelforge/pipelinecore/internal/cache"
	"github.com/reelforge/pipelinecore/internal/log"
	"github.com/reelforge/pipelinecore/internal/pipelineerr"
	"github.com/reelforge/pipelinecore/internal/project"
	"github.com/reelforge/pipelinecore/internal/qualitygate"
	"github.com/reelforge/pipelinecore/internal/runcoordinator"
)

// statusCacheTTL bounds how long a polled RunRecord is served from cache
// before the next request re-reads the RunStore; short enough that a CLI
// or scheduler polling loop never observes a stale terminal status for long.
const statusCacheTTL = 2 * time.Second

// RunStarter is the Run Coordinator surface the HTTP API depends on.
type RunStarter interface {
	StartRun(ctx context.Context, opts runcoordinator.StartRunOptions) (*runcoordinator.RunRecord, error)
}

// RunGetter is the Run Coordinator's RunStore surface, read directly so
// status polling does not pay for a StartRun-shaped dependency.
type RunGetter interface {
	Get(ctx context.Context, executionID string) (*runcoordinator.RunRecord, error)
}

// Config carries the HTTP API's tunables.
type Config struct {
	// RateLimitPerMinute bounds submit-run requests per client IP.
	RateLimitPerMinute int
}

// DefaultConfig returns a conservative default submit-run rate.
func DefaultConfig() Config {
	return Config{RateLimitPerMinute: 30}
}

// Server wires the submit-run, status, and validate handlers onto a chi
// router, validating request bodies against the embedded OpenAPI document
// before they reach the Run Coordinator or Quality Gate.
type Server struct {
	coord       RunStarter
	runs        RunGetter
	gate        *qualitygate.Gate
	projects    *project.Registry
	cfg         Config
	statusCache cache.Cache
}

// NewServer constructs a Server. gate may be nil if validate-by-HTTP is not
// needed; in that case /v1/projects/{id}/validate responds 501.
func NewServer(coord RunStarter, runs RunGetter, gate *qualitygate.Gate, projects *project.Registry, cfg Config) *Server {
	if cfg.RateLimitPerMinute <= 0 {
		cfg = DefaultConfig()
	}
	return &Server{
		coord:       coord,
		runs:        runs,
		gate:        gate,
		projects:    projects,
		cfg:         cfg,
		statusCache: cache.NewMemoryCache(30 * time.Second),
	}
}

// Router builds the chi.Router exposing every operation.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(otelMiddleware("pipelinecore"))

	r.With(httprate.LimitByIP(s.cfg.RateLimitPerMinute, time.Minute)).Post("/v1/runs", s.handleSubmitRun)
	r.Get("/v1/runs/{executionId}", s.handleGetRunStatus)
	r.Post("/v1/projects/{projectId}/validate", s.handleValidateProject)
	return r
}

type submitRunRequest struct {
	Topic          string         `json:"topic"`
	TargetAudience string         `json:"targetAudience,omitempty"`
	VideoDuration  int            `json:"videoDuration,omitempty"`
	Trigger        string         `json:"trigger,omitempty"`
	Options        map[string]any `json:"options,omitempty"`
}

type submitRunResponse struct {
	ExecutionID string `json:"executionId"`
	ProjectID   string `json:"projectId"`
	Status      string `json:"status"`
}

func (s *Server) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "httpapi")

	if err := validateRequest(r); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	var req submitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, pipelineerr.Wrap(pipelineerr.Validation, "malformed request body", err))
		return
	}

	trigger := runcoordinator.TriggerManual
	if req.Trigger == string(runcoordinator.TriggerScheduled) {
		trigger = runcoordinator.TriggerScheduled
	}

	record, err := s.coord.StartRun(r.Context(), runcoordinator.StartRunOptions{
		Topic:          req.Topic,
		TargetAudience: req.TargetAudience,
		VideoDuration:  req.VideoDuration,
		Trigger:        trigger,
	})
	if err != nil {
		logger.Warn().Err(err).Str("topic", req.Topic).Msg("submit-run failed")
		writeError(w, r, statusFor(pipelineerr.KindOf(err)), err)
		return
	}

	writeJSON(w, http.StatusAccepted, submitRunResponse{
		ExecutionID: record.ExecutionID,
		ProjectID:   record.ProjectID,
		Status:      string(record.Status),
	})
}

func (s *Server) handleGetRunStatus(w http.ResponseWriter, r *http.Request) {
	executionID := chi.URLParam(r, "executionId")

	if cached, ok := s.statusCache.Get(executionID); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	record, err := s.runs.Get(r.Context(), executionID)
	if err != nil {
		writeError(w, r, statusFor(pipelineerr.KindOf(err)), err)
		return
	}
	s.statusCache.Set(executionID, record, statusCacheTTL)
	writeJSON(w, http.StatusOK, record)
}

type validateResponse struct {
	ProjectID        string              `json:"projectId"`
	ValidationPassed bool                `json:"validationPassed"`
	Report           *qualitygate.Report `json:"report,omitempty"`
}

func (s *Server) handleValidateProject(w http.ResponseWriter, r *http.Request) {
	if s.gate == nil {
		writeError(w, r, http.StatusNotImplemented, pipelineerr.New(pipelineerr.Config, "quality gate not configured"))
		return
	}
	projectID := chi.URLParam(r, "projectId")

	manifest, report, err := s.gate.Evaluate(r.Context(), projectID)
	if err != nil && pipelineerr.KindOf(err) != pipelineerr.QualityGateRejected {
		writeError(w, r, statusFor(pipelineerr.KindOf(err)), err)
		return
	}

	resp := validateResponse{ProjectID: projectID, Report: report}
	if report != nil {
		resp.ValidationPassed = report.ValidationPassed
	}
	status := http.StatusConflict
	if resp.ValidationPassed {
		status = http.StatusOK
		if persistErr := s.gate.Persist(r.Context(), projectID, manifest, report); persistErr != nil {
			writeError(w, r, http.StatusInternalServerError, persistErr)
			return
		}
	} else if persistErr := s.gate.Persist(r.Context(), projectID, nil, report); persistErr != nil {
		writeError(w, r, http.StatusInternalServerError, persistErr)
		return
	}
	writeJSON(w, status, resp)
}

// statusFor maps the core's closed error taxonomy onto HTTP status codes.
func statusFor(kind pipelineerr.Kind) int {
	switch kind {
	case pipelineerr.Validation, pipelineerr.Config:
		return http.StatusBadRequest
	case pipelineerr.ContextMissing:
		return http.StatusNotFound
	case pipelineerr.Throttled:
		return http.StatusTooManyRequests
	case pipelineerr.Timeout:
		return http.StatusGatewayTimeout
	case pipelineerr.QualityGateRejected:
		return http.StatusConflict
	case pipelineerr.Cancelled:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeError renders err as a safe-for-display JSON body (spec §7: "no
// secrets or stack frames are included; messages are safe for display").
func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	kind := pipelineerr.KindOf(err)
	writeJSON(w, status, errorResponse{Kind: string(kind), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
