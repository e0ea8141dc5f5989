// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/pipelinecore/internal/pipelineerr"
	"github.com/reelforge/pipelinecore/internal/runcoordinator"
)

type stubCoordinator struct {
	record *runcoordinator.RunRecord
	err    error
}

func (s *stubCoordinator) StartRun(_ context.Context, opts runcoordinator.StartRunOptions) (*runcoordinator.RunRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &runcoordinator.RunRecord{ExecutionID: "exec-1", ProjectID: "proj-1", Topic: opts.Topic, Status: runcoordinator.RunRunning}, nil
}

type stubRunGetter struct {
	record *runcoordinator.RunRecord
	err    error
}

func (s *stubRunGetter) Get(_ context.Context, _ string) (*runcoordinator.RunRecord, error) {
	return s.record, s.err
}

func TestHandleSubmitRun_HappyPathReturns202(t *testing.T) {
	coord := &stubCoordinator{}
	srv := NewServer(coord, &stubRunGetter{}, nil, nil, DefaultConfig())

	body, _ := json.Marshal(map[string]any{"topic": "Travel to Spain", "videoDuration": 480})
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	srv.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	var resp submitRunResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "exec-1", resp.ExecutionID)
	assert.Equal(t, "proj-1", resp.ProjectID)
}

func TestHandleSubmitRun_MissingTopicFailsSchemaValidation(t *testing.T) {
	coord := &stubCoordinator{}
	srv := NewServer(coord, &stubRunGetter{}, nil, nil, DefaultConfig())

	body, _ := json.Marshal(map[string]any{"videoDuration": 480})
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	srv.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleSubmitRun_CoordinatorErrorMapsToStatus(t *testing.T) {
	coord := &stubCoordinator{err: pipelineerr.New(pipelineerr.Config, "bad config")}
	srv := NewServer(coord, &stubRunGetter{}, nil, nil, DefaultConfig())

	body, _ := json.Marshal(map[string]any{"topic": "X"})
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	srv.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleGetRunStatus_ReturnsRecordVerbatim(t *testing.T) {
	record := &runcoordinator.RunRecord{ExecutionID: "exec-9", Status: runcoordinator.RunSucceeded}
	srv := NewServer(&stubCoordinator{}, &stubRunGetter{record: record}, nil, nil, DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/exec-9", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got runcoordinator.RunRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "exec-9", got.ExecutionID)
}

func TestHandleGetRunStatus_UnknownExecutionIDReturns404(t *testing.T) {
	srv := NewServer(&stubCoordinator{}, &stubRunGetter{err: pipelineerr.New(pipelineerr.ContextMissing, "not found")}, nil, nil, DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/nope", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleValidateProject_NoGateConfiguredReturns501(t *testing.T) {
	srv := NewServer(&stubCoordinator{}, &stubRunGetter{}, nil, nil, DefaultConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/projects/proj-1/validate", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}
