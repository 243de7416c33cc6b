package storage

import (
	"context"
	"time"

	"github.com/semaphoric/vecmig/core"
)

// SourceRepository reads pages of raw records from relational source tables.
// Implementations must use a stable ORDER BY on the spec's ID column so that
// resuming at a given offset deterministically continues from the same
// logical position.
type SourceRepository interface {
	// Count returns the total number of rows in the spec's table.
	Count(ctx context.Context, spec core.SourceSpec) (int, error)

	// FetchPage returns up to limit rows starting at offset, ordered by the
	// spec's ID column. An empty result signals the end of the table.
	FetchPage(ctx context.Context, spec core.SourceSpec, offset, limit int) ([]*core.SourceRecord, error)

	// Close releases the underlying connections.
	Close() error
}

// VectorRepository owns the durable vector store.
// Implementations must be thread-safe and support concurrent access.
type VectorRepository interface {
	// Upsert inserts the document or, on conflict of the natural key
	// (SourceTable, SourceID, ChunkIndex), updates the vector, model,
	// content, metadata and IndexedAt. CreatedAt is never touched on update.
	Upsert(ctx context.Context, doc *core.VectorDocument) error

	// UpsertBatch applies the documents in one transaction. Any single
	// failure rolls back the whole batch.
	UpsertBatch(ctx context.Context, docs []*core.VectorDocument) error

	// Exists reports whether a document with the given natural key and
	// embedding model is already stored. This backs chunk deduplication:
	// re-runs classify such chunks as alreadyExists without embedding.
	Exists(ctx context.Context, sourceTable, sourceID string, chunkIndex int, model string) (bool, error)

	// Search returns up to limit documents ordered by descending cosine
	// similarity to the query vector. A positive minSimilarity discards hits
	// scoring below it; zero applies no threshold at all. A non-empty tables
	// set restricts results to those source tables.
	Search(ctx context.Context, vector []float32, limit int, minSimilarity float32, tables []string) ([]*core.ScoredDocument, error)

	// Close releases the underlying connections.
	Close() error
}

// CacheRepository is the durable tier of the embedding cache, keyed by
// content hash. Implementations must be thread-safe.
type CacheRepository interface {
	// Get returns the entry for the hash, or nil if absent.
	// A hit updates the entry's LastUsed watermark.
	Get(ctx context.Context, contentHash string) (*core.CacheEntry, error)

	// Put stores the entry if its hash is absent. The first writer wins:
	// putting an existing hash is a no-op, never an overwrite.
	Put(ctx context.Context, entry *core.CacheEntry) error

	// DeleteOlderThan removes entries whose LastUsed is before cutoff and
	// returns how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases the underlying resources.
	Close() error
}
