// Copyright 2025 Semaphoric Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/semaphoric/vecmig/core"
	"github.com/semaphoric/vecmig/storage"
)

const cacheEntryPrefix = "embcache"

// CacheRepository implements storage.CacheRepository for BadgerDB.
// It is the durable tier of the embedding cache: entries survive process
// restarts and are shared across runs.
type CacheRepository struct {
	backend *Backend
}

var _ storage.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository creates a new CacheRepository.
func NewCacheRepository(backend *Backend) *CacheRepository {
	return &CacheRepository{
		backend: backend,
	}
}

// makeCacheKey generates a key for a cache entry by content hash.
func makeCacheKey(contentHash string) []byte {
	return []byte(cacheEntryPrefix + ":" + contentHash)
}

// Get returns the entry for the hash, or nil if absent.
// A hit refreshes the entry's LastUsed watermark so eviction by age keeps
// actively reused entries alive.
func (r *CacheRepository) Get(ctx context.Context, contentHash string) (*core.CacheEntry, error) {
	var entry *core.CacheEntry

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(contentHash))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		if err := item.Value(func(val []byte) error {
			var unmarshalErr error
			entry, unmarshalErr = storage.UnmarshalCacheEntry(val)
			return unmarshalErr
		}); err != nil {
			return err
		}

		entry.LastUsed = time.Now().UTC()
		if err := tx.Set(makeCacheKey(contentHash), storage.MarshalCacheEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Put stores the entry if its hash is absent. The first writer wins:
// putting an existing hash is a no-op.
func (r *CacheRepository) Put(ctx context.Context, entry *core.CacheEntry) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCacheKey(entry.ContentHash)

		_, err := tx.Get(key)
		if err == nil {
			// Already cached; idempotent set never overwrites.
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		stored := *entry
		now := time.Now().UTC()
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		if stored.LastUsed.IsZero() {
			stored.LastUsed = now
		}

		if err := tx.Set(key, storage.MarshalCacheEntry(&stored)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteOlderThan removes entries whose LastUsed is before cutoff.
func (r *CacheRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var stale [][]byte

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(cacheEntryPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()

			var entry *core.CacheEntry
			err := item.Value(func(val []byte) error {
				var unmarshalErr error
				entry, unmarshalErr = storage.UnmarshalCacheEntry(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}

			if entry.LastUsed.Before(cutoff) {
				stale = append(stale, item.KeyCopy(nil))
			}
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}

	if len(stale) == 0 {
		return 0, nil
	}

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range stale {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}

	return len(stale), nil
}

// Close is a no-op; the shared backend owns the database lifecycle.
func (r *CacheRepository) Close() error {
	return nil
}
