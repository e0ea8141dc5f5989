// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
)

// sentinelName marks a prefix as "present" when nothing else occupies it
// yet (spec §3: "empty placeholders are written if the prefix is absent").
const sentinelName = ".keep"

// FSObjectStore is a local-filesystem-backed ObjectStore. Every write goes
// through renameio so that a concurrent reader never observes a partially
// written file (spec §5: "put then swap reference" semantics).
type FSObjectStore struct {
	root string
}

// NewFSObjectStore roots an FSObjectStore at dir, creating it if absent.
func NewFSObjectStore(dir string) (*FSObjectStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FSObjectStore{root: dir}, nil
}

func (s *FSObjectStore) abs(projectID, path string) string {
	return filepath.Join(s.root, projectID, filepath.FromSlash(path))
}

func (s *FSObjectStore) Put(_ context.Context, projectID, path string, data []byte) error {
	full := s.abs(projectID, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(full, data, 0o644)
}

func (s *FSObjectStore) Get(_ context.Context, projectID, path string) ([]byte, bool, error) {
	full := s.abs(projectID, path)
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *FSObjectStore) Exists(_ context.Context, projectID, path string) (bool, error) {
	full := s.abs(projectID, path)
	info, err := os.Stat(full)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir() && info.Size() >= 0, nil
}

func (s *FSObjectStore) EnsurePrefix(_ context.Context, projectID, prefix string) error {
	dir := s.abs(projectID, prefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return nil
	}
	return renameio.WriteFile(filepath.Join(dir, sentinelName), []byte{}, 0o644)
}

func (s *FSObjectStore) PrefixExists(_ context.Context, projectID, prefix string) (bool, error) {
	info, err := os.Stat(s.abs(projectID, prefix))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func (s *FSObjectStore) List(_ context.Context, projectID, prefix string) ([]string, error) {
	root := s.abs(projectID, prefix)
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || d.Name() == sentinelName {
			return nil
		}
		rel, err := filepath.Rel(s.abs(projectID, ""), path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// IsVisualFile reports whether path carries an extension on the fixed
// visual-asset allow-list (spec §4.5: images and common video containers).
func IsVisualFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".mp4", ".mov", ".webm":
		return true
	default:
		return false
	}
}
