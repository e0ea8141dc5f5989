// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpapi

import (
	"bytes"
	"context"
	"embed"
	"io"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	"github.com/reelforge/pipelinecore/internal/pipelineerr"
)

//go:embed openapi/pipelinecore.yaml
var openapiFS embed.FS

var (
	docOnce sync.Once
	doc     *openapi3.T
	router  routers.Router
	docErr  error
)

// loadDoc parses and validates the embedded OpenAPI document exactly once.
func loadDoc() (*openapi3.T, routers.Router, error) {
	docOnce.Do(func() {
		data, err := openapiFS.ReadFile("openapi/pipelinecore.yaml")
		if err != nil {
			docErr = err
			return
		}
		loader := openapi3.NewLoader()
		d, err := loader.LoadFromData(data)
		if err != nil {
			docErr = err
			return
		}
		if err := d.Validate(context.Background()); err != nil {
			docErr = err
			return
		}
		r, err := legacy.NewRouter(d)
		if err != nil {
			docErr = err
			return
		}
		doc, router = d, r
	})
	return doc, router, docErr
}

// validateRequest checks req against the embedded OpenAPI document's route
// and request-body schema before the handler runs, returning a display-safe
// error on mismatch. ValidateRequest drains req.Body, so this restores it
// from a buffered copy afterward for the handler to read normally.
func validateRequest(req *http.Request) error {
	_, r, err := loadDoc()
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.Config, "openapi document unavailable", err)
	}
	route, pathParams, err := r.FindRoute(req)
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.Validation, "no matching route", err)
	}

	var bodyCopy []byte
	if req.Body != nil {
		bodyCopy, err = io.ReadAll(req.Body)
		if err != nil {
			return pipelineerr.Wrap(pipelineerr.Validation, "read request body", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(bodyCopy))
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
	}
	verr := openapi3filter.ValidateRequest(req.Context(), input)
	req.Body = io.NopCloser(bytes.NewReader(bodyCopy))
	if verr != nil {
		return pipelineerr.Wrap(pipelineerr.Validation, "request failed schema validation", verr)
	}
	return nil
}
