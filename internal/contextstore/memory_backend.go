// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package contextstore

import (
	"context"
	"sync"
	"time"
)

// memoryEntry pairs a payload with its absolute expiry.
type memoryEntry struct {
	payload []byte
	expires time.Time
}

func (e memoryEntry) isExpired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// MemoryBackend is an in-process Backend, used by tests and by callers that
// don't need cross-process durability. Inline and blob entries live in two
// maps behind one mutex; real backends keep them on separate systems (spec
// §4.1: fast-KV vs. object store).
type MemoryBackend struct {
	mu     sync.RWMutex
	inline map[string]memoryEntry
	blob   map[string]memoryEntry
}

// NewMemoryBackend constructs an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		inline: make(map[string]memoryEntry),
		blob:   make(map[string]memoryEntry),
	}
}

func (b *MemoryBackend) PutInline(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inline[key] = newEntry(payload, ttl)
	return nil
}

func (b *MemoryBackend) GetInline(_ context.Context, key string) ([]byte, bool, error) {
	return get(&b.mu, b.inline, key)
}

func (b *MemoryBackend) PutBlob(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blob[key] = newEntry(payload, ttl)
	return nil
}

func (b *MemoryBackend) GetBlob(_ context.Context, key string) ([]byte, bool, error) {
	return get(&b.mu, b.blob, key)
}

func newEntry(payload []byte, ttl time.Duration) memoryEntry {
	e := memoryEntry{payload: payload}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	return e
}

func get(mu *sync.RWMutex, m map[string]memoryEntry, key string) ([]byte, bool, error) {
	mu.RLock()
	e, ok := m[key]
	mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.isExpired(time.Now()) {
		return nil, false, nil
	}
	return e.payload, true, nil
}
