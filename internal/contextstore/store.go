// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package contextstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/reelforge/pipelinecore/internal/pipelineerr"
)

// Placement is the store's size-based decision: inline in the fast-KV
// backend, or as a blob with a thin pointer record (spec §3/§4.1).
type Placement string

const (
	PlacementInline Placement = "inline"
	PlacementBlob   Placement = "blob"
)

// Ref identifies a stored context document.
type Ref struct {
	ProjectID   string    `json:"projectId"`
	Type        Type      `json:"type"`
	Placement   Placement `json:"placement"`
	SizeBytes   int       `json:"sizeBytes"`
	Compressed  bool      `json:"compressed"`
	WrittenAt   time.Time `json:"writtenAt"`
}

// Store is the Context Store contract (spec §4.1).
type Store interface {
	Put(ctx context.Context, projectID string, typ Type, doc Document) (Ref, error)
	Get(ctx context.Context, projectID string, typ Type) (Document, error)
	Exists(ctx context.Context, projectID string, typ Type) (bool, error)
	// ListTypes reports which of AllTypes() have a document written for
	// projectID, in AllTypes() order. Supplemental introspection consumed by
	// the Quality Gate and the `validate <projectId>` path to report which
	// upstream contexts exist before running checks.
	ListTypes(ctx context.Context, projectID string) ([]Type, error)
}

// record is the on-wire envelope persisted by every backend: either the raw
// (optionally gzip-compressed) document bytes inline, or a pointer to the
// blob backend.
type record struct {
	Ref     Ref    `json:"ref"`
	Payload []byte `json:"payload,omitempty"` // present when Ref.Placement == Inline
	BlobKey string `json:"blobKey,omitempty"` // present when Ref.Placement == Blob
}

// Backend is the low-level byte-oriented persistence contract a concrete
// Store implementation is built on: a fast path for inline records and a
// blob path for large ones, each with its own TTL.
type Backend interface {
	PutInline(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	GetInline(ctx context.Context, key string) ([]byte, bool, error)
	PutBlob(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	GetBlob(ctx context.Context, key string) ([]byte, bool, error)
}

// TTLPolicy carries spec §3's default retention windows.
type TTLPolicy struct {
	Inline time.Duration
	Blob   time.Duration
}

// DefaultTTLPolicy returns the spec's suggested defaults.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{Inline: 7 * 24 * time.Hour, Blob: 30 * 24 * time.Hour}
}

// store is the default Store implementation: schema validation, size-based
// placement, and optional compression, layered over a Backend.
type store struct {
	backend       Backend
	smallCtxBytes int
	ttl           TTLPolicy
}

// New constructs a Store. smallCtxBytes is the inline/blob placement
// threshold (spec suggests 100 KiB).
func New(backend Backend, smallCtxBytes int, ttl TTLPolicy) Store {
	if smallCtxBytes <= 0 {
		smallCtxBytes = 100 * 1024
	}
	return &store{backend: backend, smallCtxBytes: smallCtxBytes, ttl: ttl}
}

func key(projectID string, typ Type) string {
	return projectID + "/" + string(typ)
}

func (s *store) Put(ctx context.Context, projectID string, typ Type, doc Document) (Ref, error) {
	if doc.contextType() != typ {
		return Ref{}, pipelineerr.New(pipelineerr.Validation, "document type disagrees with requested contextType")
	}
	if err := validateAgainstKey(projectID, doc); err != nil {
		return Ref{}, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return Ref{}, pipelineerr.Wrap(pipelineerr.Validation, "marshal context document", err)
	}

	ref := Ref{ProjectID: projectID, Type: typ, SizeBytes: len(raw), WrittenAt: time.Now().UTC()}
	payload := raw
	// The boundary is a single strict threshold: exactly smallCtxBytes is
	// still "small" (spec §8 boundary test).
	if len(raw) > s.smallCtxBytes {
		ref.Placement = PlacementBlob
		if compressed, ok := tryCompress(raw); ok {
			payload = compressed
			ref.Compressed = true
		}
		rec := record{Ref: ref, BlobKey: key(projectID, typ)}
		recBytes, err := json.Marshal(rec)
		if err != nil {
			return Ref{}, pipelineerr.Wrap(pipelineerr.Backend, "marshal blob record", err)
		}
		if err := s.backend.PutBlob(ctx, key(projectID, typ), payload, s.ttl.Blob); err != nil {
			return Ref{}, pipelineerr.Wrap(pipelineerr.Backend, "write blob", err)
		}
		if err := s.backend.PutInline(ctx, key(projectID, typ), recBytes, s.ttl.Blob); err != nil {
			return Ref{}, pipelineerr.Wrap(pipelineerr.Backend, "write blob pointer", err)
		}
		return ref, nil
	}

	ref.Placement = PlacementInline
	rec := record{Ref: ref, Payload: payload}
	recBytes, err := json.Marshal(rec)
	if err != nil {
		return Ref{}, pipelineerr.Wrap(pipelineerr.Backend, "marshal inline record", err)
	}
	if err := s.backend.PutInline(ctx, key(projectID, typ), recBytes, s.ttl.Inline); err != nil {
		return Ref{}, pipelineerr.Wrap(pipelineerr.Backend, "write inline record", err)
	}
	return ref, nil
}

func (s *store) Get(ctx context.Context, projectID string, typ Type) (Document, error) {
	raw, ok, err := s.backend.GetInline(ctx, key(projectID, typ))
	if err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.Backend, "read record", err)
	}
	if !ok {
		return nil, pipelineerr.New(pipelineerr.ContextMissing, "context not found or expired")
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.Backend, "unmarshal record envelope", err)
	}

	payload := rec.Payload
	if rec.Ref.Placement == PlacementBlob {
		blob, ok, err := s.backend.GetBlob(ctx, rec.BlobKey)
		if err != nil {
			return nil, pipelineerr.Wrap(pipelineerr.Backend, "read blob", err)
		}
		if !ok {
			return nil, pipelineerr.New(pipelineerr.ContextMissing, "blob missing or expired")
		}
		payload = blob
	}
	if rec.Ref.Compressed {
		decompressed, err := decompress(payload)
		if err != nil {
			return nil, pipelineerr.Wrap(pipelineerr.Backend, "decompress blob", err)
		}
		payload = decompressed
	}

	doc, err := decode(typ, payload)
	if err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.Backend, "unmarshal context document", err)
	}
	return doc, nil
}

func (s *store) Exists(ctx context.Context, projectID string, typ Type) (bool, error) {
	_, ok, err := s.backend.GetInline(ctx, key(projectID, typ))
	if err != nil {
		return false, pipelineerr.Wrap(pipelineerr.Backend, "probe record", err)
	}
	return ok, nil
}

func (s *store) ListTypes(ctx context.Context, projectID string) ([]Type, error) {
	var present []Type
	for _, typ := range AllTypes() {
		ok, err := s.Exists(ctx, projectID, typ)
		if err != nil {
			return nil, err
		}
		if ok {
			present = append(present, typ)
		}
	}
	return present, nil
}

func decode(typ Type, payload []byte) (Document, error) {
	var doc Document
	switch typ {
	case TypeTopic:
		doc = &TopicContext{}
	case TypeScene:
		doc = &SceneContext{}
	case TypeMedia:
		doc = &MediaContext{}
	case TypeAudio:
		doc = &AudioContext{}
	case TypeVideo:
		doc = &VideoContext{}
	case TypeManifest:
		doc = &ManifestContext{}
	case TypeSchedule:
		doc = &ScheduleContext{}
	default:
		return nil, pipelineerr.New(pipelineerr.Validation, "unknown context type")
	}
	if err := json.Unmarshal(payload, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// tryCompress gzip-compresses payload and reports ok only if the result is
// at least 20% smaller (spec §4.1).
func tryCompress(payload []byte) ([]byte, bool) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		return nil, false
	}
	if err := w.Close(); err != nil {
		return nil, false
	}
	compressed := buf.Bytes()
	if float64(len(compressed)) <= float64(len(payload))*0.8 {
		return compressed, true
	}
	return nil, false
}

func decompress(payload []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
