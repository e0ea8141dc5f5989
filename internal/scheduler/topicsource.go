// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/reelforge/pipelinecore/internal/log"
	"github.com/reelforge/pipelinecore/internal/pipelineerr"
)

// TopicSource is the abstraction over spec §6's topic source contract: a
// sequence of {topic, dailyFrequency, lastUsed, priority} records, format
// unspecified by the core.
type TopicSource interface {
	List(ctx context.Context) ([]TopicRecord, error)
	MarkUsed(ctx context.Context, topic string, at time.Time) error
}

// yamlFile is the on-disk shape a YAMLTopicSource reads.
type yamlFile struct {
	Topics []TopicRecord `yaml:"topics"`
}

// YAMLTopicSource is a TopicSource backed by a single YAML file, hot-reloaded
// via fsnotify on write/rename (same debounced-watch pattern as the
// teacher's config.ConfigHolder).
type YAMLTopicSource struct {
	path string

	mu      sync.RWMutex
	records []TopicRecord

	watcher *fsnotify.Watcher
}

// NewYAMLTopicSource loads path once and returns a source ready for List.
// Call Watch to enable hot-reload.
func NewYAMLTopicSource(path string) (*YAMLTopicSource, error) {
	s := &YAMLTopicSource{path: path}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *YAMLTopicSource) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.Config, "read topic source file", err)
	}
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return pipelineerr.Wrap(pipelineerr.Config, "parse topic source file", err)
	}
	s.mu.Lock()
	s.records = f.Topics
	s.mu.Unlock()
	return nil
}

// List returns a defensive copy of the currently loaded records.
func (s *YAMLTopicSource) List(_ context.Context) ([]TopicRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TopicRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// MarkUsed sets lastUsed on the named topic and rewrites the backing file,
// so the next process start observes it too.
func (s *YAMLTopicSource) MarkUsed(_ context.Context, topic string, at time.Time) error {
	s.mu.Lock()
	found := false
	for i := range s.records {
		if s.records[i].Topic == topic {
			s.records[i].LastUsed = &at
			found = true
			break
		}
	}
	snapshot := make([]TopicRecord, len(s.records))
	copy(snapshot, s.records)
	s.mu.Unlock()

	if !found {
		return pipelineerr.New(pipelineerr.Validation, fmt.Sprintf("unknown topic %q", topic))
	}
	data, err := yaml.Marshal(yamlFile{Topics: snapshot})
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.Backend, "marshal topic source file", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return pipelineerr.Wrap(pipelineerr.Backend, "write topic source file", err)
	}
	return nil
}

// Watch starts an fsnotify watch on the source file's directory and reloads
// on write/create/rename, stopping when ctx is done (spec's Configuration
// section: "fsnotify watches an optional YAML overlay file ... and
// hot-reloads it").
func (s *YAMLTopicSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.Backend, "create topic source watcher", err)
	}
	s.watcher = watcher
	dir := filepath.Dir(s.path)
	base := filepath.Base(s.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return pipelineerr.Wrap(pipelineerr.Backend, "watch topic source dir", err)
	}

	logger := log.WithComponent("scheduler.topicsource")
	go func() {
		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				_ = watcher.Close()
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(250*time.Millisecond, func() {
					if err := s.reload(); err != nil {
						logger.Warn().Err(err).Msg("topic source hot-reload failed, keeping previous records")
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Msg("topic source watcher error")
			}
		}
	}()
	return nil
}

// Close stops the watcher, if running.
func (s *YAMLTopicSource) Close() {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
}
