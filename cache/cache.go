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


package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/semaphoric/vecmig/core"
	"github.com/semaphoric/vecmig/storage"
)

// Cache is the tiered embedding cache. Lookups go through the in-process map
// first, then the durable tier; hits at the durable tier are promoted into
// the in-process map. Entries are content-addressed: two source rows with
// byte-identical normalized text share one entry and one provider call.
//
// Set is idempotent — the first writer for a hash wins and later writers are
// no-ops, so concurrent workers embedding the same text need no coordination
// beyond the cache itself.
type Cache struct {
	mu      sync.RWMutex
	mem     map[string]*core.CacheEntry
	durable storage.CacheRepository // optional; nil means in-process only
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// New creates a tiered cache over the given durable tier.
// durable may be nil for an in-process-only cache.
func New(durable storage.CacheRepository, opts ...Option) *Cache {
	c := &Cache{
		mem:     make(map[string]*core.CacheEntry),
		durable: durable,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached entry for the hash, or nil on a full miss.
// Durable-tier hits are promoted into the in-process tier.
func (c *Cache) Get(ctx context.Context, contentHash string) (*core.CacheEntry, error) {
	c.mu.RLock()
	entry, ok := c.mem[contentHash]
	c.mu.RUnlock()
	if ok {
		return entry, nil
	}

	if c.durable == nil {
		return nil, nil
	}

	entry, err := c.durable.Get(ctx, contentHash)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	c.promote(entry)
	return entry, nil
}

// Set stores the entry in both tiers. Inserting an existing hash is a no-op;
// the first successful write is authoritative.
func (c *Cache) Set(ctx context.Context, entry *core.CacheEntry) error {
	if entry == nil || entry.ContentHash == "" {
		return nil
	}

	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.LastUsed.IsZero() {
		entry.LastUsed = now
	}

	c.mu.Lock()
	if _, exists := c.mem[entry.ContentHash]; exists {
		c.mu.Unlock()
		return nil
	}
	c.mem[entry.ContentHash] = entry
	c.mu.Unlock()

	if c.durable == nil {
		return nil
	}
	return c.durable.Put(ctx, entry)
}

// CleanOlderThan deletes durable entries untouched for longer than age and
// clears the whole in-process tier so evicted entries cannot be served stale.
// Returns the number of durable entries deleted.
func (c *Cache) CleanOlderThan(ctx context.Context, age time.Duration) (int, error) {
	var deleted int
	if c.durable != nil {
		var err error
		deleted, err = c.durable.DeleteOlderThan(ctx, time.Now().UTC().Add(-age))
		if err != nil {
			return 0, err
		}
	}

	c.mu.Lock()
	c.mem = make(map[string]*core.CacheEntry)
	c.mu.Unlock()

	c.logger.Info("embedding cache cleaned", "deleted", deleted, "olderThan", age)
	return deleted, nil
}

// Len returns the number of entries in the in-process tier.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mem)
}

func (c *Cache) promote(entry *core.CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.mem[entry.ContentHash]; !exists {
		c.mem[entry.ContentHash] = entry
	}
}
