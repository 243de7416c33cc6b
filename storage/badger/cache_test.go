package badger

import (
	"context"
	"testing"
	"time"

	"github.com/semaphoric/vecmig/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *CacheRepository {
	t.Helper()
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return NewCacheRepository(backend)
}

func testEntry(text string) *core.CacheEntry {
	return &core.CacheEntry{
		ContentHash: core.HashContent(text),
		Vector:      []float32{0.1, 0.2, 0.3},
		TokenCount:  4,
	}
}

func TestCacheRepository_GetMiss(t *testing.T) {
	repo := newTestRepo(t)

	entry, err := repo.Get(context.Background(), core.HashContent("absent"))
	require.NoError(t, err)
	assert.Nil(t, entry, "miss returns nil, not an error")
}

func TestCacheRepository_PutThenGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entry := testEntry("hello world")
	require.NoError(t, repo.Put(ctx, entry))

	got, err := repo.Get(ctx, entry.ContentHash)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.Vector, got.Vector)
	assert.Equal(t, entry.TokenCount, got.TokenCount)
	assert.False(t, got.CreatedAt.IsZero(), "CreatedAt is populated on first put")
	assert.False(t, got.LastUsed.IsZero())
}

func TestCacheRepository_PutIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := testEntry("same text")
	require.NoError(t, repo.Put(ctx, first))

	// A second writer with the same hash must not overwrite.
	second := *first
	second.Vector = []float32{9, 9, 9}
	require.NoError(t, repo.Put(ctx, &second))

	got, err := repo.Get(ctx, first.ContentHash)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.Vector, got.Vector, "first writer wins")
}

func TestCacheRepository_GetRefreshesLastUsed(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entry := testEntry("refresh me")
	entry.CreatedAt = time.Now().UTC().Add(-time.Hour)
	entry.LastUsed = entry.CreatedAt
	require.NoError(t, repo.Put(ctx, entry))

	got, err := repo.Get(ctx, entry.ContentHash)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.LastUsed.After(entry.LastUsed), "hit refreshes LastUsed")
}

func TestCacheRepository_DeleteOlderThan(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	old := testEntry("old entry")
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	old.LastUsed = old.CreatedAt
	require.NoError(t, repo.Put(ctx, old))

	fresh := testEntry("fresh entry")
	require.NoError(t, repo.Put(ctx, fresh))

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	gone, err := repo.Get(ctx, old.ContentHash)
	require.NoError(t, err)
	assert.Nil(t, gone, "stale entry must be gone")

	kept, err := repo.Get(ctx, fresh.ContentHash)
	require.NoError(t, err)
	assert.NotNil(t, kept, "fresh entry must survive")
}
