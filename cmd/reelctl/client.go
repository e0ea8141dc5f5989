// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// exit codes per spec.md §6.
const (
	exitSuccess         = 0
	exitGeneralFailure  = 1
	exitConfigError     = 2
	exitQualityRejected = 3
)

// cliError carries the process exit code alongside the displayed message,
// so RunE can surface both without re-deriving the code from the error text.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }

func newCLIError(code int, err error) *cliError { return &cliError{code: code, err: err} }

type apiErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// client is a thin HTTP client over the daemon's submit-run, status, and
// validate endpoints (spec.md §6).
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

type submitRunRequest struct {
	Topic          string `json:"topic"`
	TargetAudience string `json:"targetAudience,omitempty"`
	VideoDuration  int    `json:"videoDuration,omitempty"`
	Trigger        string `json:"trigger,omitempty"`
}

type submitRunResponse struct {
	ExecutionID string `json:"executionId"`
	ProjectID   string `json:"projectId"`
	Status      string `json:"status"`
}

func (c *client) submitRun(ctx context.Context, req submitRunRequest) (*submitRunResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, newCLIError(exitGeneralFailure, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/runs", bytes.NewReader(body))
	if err != nil {
		return nil, newCLIError(exitConfigError, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, newCLIError(exitGeneralFailure, fmt.Errorf("reach daemon: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return nil, apiError(resp)
	}
	var out submitRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, newCLIError(exitGeneralFailure, fmt.Errorf("decode submit-run response: %w", err))
	}
	return &out, nil
}

func (c *client) runStatus(ctx context.Context, executionID string) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/runs/"+executionID, nil)
	if err != nil {
		return nil, newCLIError(exitConfigError, err)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, newCLIError(exitGeneralFailure, fmt.Errorf("reach daemon: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return nil, apiError(resp)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newCLIError(exitGeneralFailure, err)
	}
	return raw, nil
}

type validateResponse struct {
	ProjectID        string          `json:"projectId"`
	ValidationPassed bool            `json:"validationPassed"`
	Report           json.RawMessage `json:"report,omitempty"`
}

func (c *client) validateProject(ctx context.Context, projectID string) (*validateResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/projects/"+projectID+"/validate", nil)
	if err != nil {
		return nil, newCLIError(exitConfigError, err)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, newCLIError(exitGeneralFailure, fmt.Errorf("reach daemon: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		return nil, apiError(resp)
	}
	var out validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, newCLIError(exitGeneralFailure, fmt.Errorf("decode validate response: %w", err))
	}
	if !out.ValidationPassed {
		return &out, newCLIError(exitQualityRejected, fmt.Errorf("quality gate rejected project %s", projectID))
	}
	return &out, nil
}

// apiError maps a non-2xx daemon response onto a cliError, preferring the
// daemon's own {kind, message} body (already safe for display per spec §7)
// over a generic status-code message.
func apiError(resp *http.Response) error {
	var body apiErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		code := exitGeneralFailure
		if body.Kind == "Config" || body.Kind == "Validation" {
			code = exitConfigError
		}
		if body.Kind == "QualityGateRejected" {
			code = exitQualityRejected
		}
		return newCLIError(code, fmt.Errorf("%s: %s", body.Kind, body.Message))
	}
	return newCLIError(exitGeneralFailure, fmt.Errorf("daemon returned %s", resp.Status))
}
