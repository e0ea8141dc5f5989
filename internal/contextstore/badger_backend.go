// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package contextstore

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// BadgerBackend is the embedded blob backend for context documents that
// cross SmallCtxBytes (spec §4.1). It is also suitable as the local
// object-store content index referenced in SPEC_FULL.md's DOMAIN STACK.
type BadgerBackend struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewBadgerBackend opens (or creates) a Badger database rooted at dir.
func NewBadgerBackend(dir string, logger zerolog.Logger) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("dir", dir).Msg("contextstore: opened badger blob store")
	return &BadgerBackend{db: db, logger: logger}, nil
}

func (b *BadgerBackend) PutBlob(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	return b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), payload)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (b *BadgerBackend) GetBlob(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// PutInline/GetInline let BadgerBackend stand alone as a Backend (e.g. a
// single-process deployment without Redis); both tiers share the same
// underlying LSM tree, prefixed to avoid collisions with blob keys.
func (b *BadgerBackend) PutInline(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return b.PutBlob(ctx, "inline:"+key, payload, ttl)
}

func (b *BadgerBackend) GetInline(ctx context.Context, key string) ([]byte, bool, error) {
	return b.GetBlob(ctx, "inline:"+key)
}

// Close flushes and closes the underlying database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

// RunGC runs Badger's value-log garbage collection; callers schedule this
// periodically (spec's TTL expiry is otherwise lazy/on-read in Badger).
func (b *BadgerBackend) RunGC(discardRatio float64) error {
	return b.db.RunValueLogGC(discardRatio)
}
