// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import "context"

// ObjectStore is the abstraction over "the object store" from spec §3: a
// prefix-addressed blob namespace. A path is always
// relative to a project's root (e.g. "01-context/manifest.json").
type ObjectStore interface {
	// Put writes data at path, creating any missing parent prefixes. Writes
	// are atomic: a reader observes either the prior content or the new
	// content in full, never a partial write.
	Put(ctx context.Context, projectID, path string, data []byte) error

	// Get reads the object at path. ok is false if the object does not exist.
	Get(ctx context.Context, projectID, path string) (data []byte, ok bool, err error)

	// Exists reports whether an object exists at path; an empty object
	// counts. A prefix (folder) itself does not satisfy Exists.
	Exists(ctx context.Context, projectID, path string) (bool, error)

	// EnsurePrefix makes prefix (a folder path, no leading/trailing slash
	// required) present, writing an empty sentinel object if nothing occupies
	// it yet. Idempotent.
	EnsurePrefix(ctx context.Context, projectID, prefix string) error

	// PrefixExists reports whether prefix has been created (via EnsurePrefix
	// or by virtue of containing an object), independent of whether it holds
	// any non-sentinel objects.
	PrefixExists(ctx context.Context, projectID, prefix string) (bool, error)

	// List returns every object path under prefix (recursively), excluding
	// sentinel placeholders written purely by EnsurePrefix.
	List(ctx context.Context, projectID, prefix string) ([]string, error)
}
