// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package contextstore

import (
	"context"

	"github.com/reelforge/pipelinecore/internal/backoffx"
	"github.com/reelforge/pipelinecore/internal/pipelineerr"
)

// GetWithRetry wraps Get with bounded exponential backoff for transport
// failures (spec §4.1: "Retrieval with retry uses bounded exponential
// backoff"). Validation/ContextMissing errors are not retried.
func GetWithRetry(ctx context.Context, s Store, projectID string, typ Type, policy backoffx.Policy) (Document, error) {
	var doc Document
	err := backoffx.Run(ctx, policy, func(err error) bool {
		return pipelineerr.KindOf(err) == pipelineerr.Backend
	}, func(ctx context.Context) error {
		d, err := s.Get(ctx, projectID, typ)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
