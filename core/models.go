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


package core

import "time"

// SourceRecord is one row fetched from a relational source table.
// Records are read-only: they are fetched in pages and never mutated.
type SourceRecord struct {
	Table  string
	ID     string
	Fields map[string]any
}

// Chunk is a bounded text segment derived from a source record's content.
// ContentHash is a deterministic digest of the chunk text and serves as the
// deduplication and cache key.
type Chunk struct {
	SourceTable string
	SourceID    string
	Index       int
	Total       int
	Title       string
	Text        string
	ContentHash string
	Metadata    map[string]string
}

// CacheEntry holds a cached embedding keyed by content hash.
// Entries are written once per unique hash; later writes for the same hash
// are no-ops.
type CacheEntry struct {
	ContentHash string
	Vector      []float32
	TokenCount  int
	CreatedAt   time.Time
	LastUsed    time.Time
}

// Dimension returns the embedding dimension of the cached vector.
func (e *CacheEntry) Dimension() int {
	return len(e.Vector)
}

// VectorDocument is the durable unit in the vector store.
// (SourceTable, SourceID, ChunkIndex) is the natural key: re-insertion with
// the same key updates the existing row, it never duplicates.
type VectorDocument struct {
	SourceTable    string
	SourceID       string
	ChunkIndex     int
	TotalChunks    int
	Title          string
	Content        string
	Metadata       map[string]string
	Vector         []float32
	EmbeddingModel string
	CreatedAt      time.Time
	IndexedAt      time.Time
}

// TableProgress tracks per-table migration counters.
// Processed is monotonically non-decreasing and serves as the resume offset
// on restart.
type TableProgress struct {
	Total         int `json:"total"`
	Processed     int `json:"processed"`
	Migrated      int `json:"migrated"`
	Failed        int `json:"failed"`
	Skipped       int `json:"skipped"`
	AlreadyExists int `json:"alreadyExists"`
}

// Accounted returns the number of records observed so far across all
// terminal classifications.
func (p *TableProgress) Accounted() int {
	return p.Migrated + p.Failed + p.Skipped + p.AlreadyExists
}

// Complete reports whether the table has been fully processed.
func (p *TableProgress) Complete() bool {
	return p.Total > 0 && p.Processed >= p.Total
}

// Percent returns completion as a percentage in [0, 100].
func (p *TableProgress) Percent() float64 {
	if p.Total <= 0 {
		return 100.0
	}
	pct := float64(p.Processed) / float64(p.Total) * 100.0
	if pct > 100.0 {
		pct = 100.0
	}
	return pct
}

// Stats aggregates process-wide migration counters. It is derived from the
// per-table progress records plus token and cost accounting; it is never
// persisted independently of the checkpoint.
type Stats struct {
	TotalMigrated      int     `json:"totalMigrated"`
	TotalFailed        int     `json:"totalFailed"`
	TotalSkipped       int     `json:"totalSkipped"`
	TotalAlreadyExists int     `json:"totalAlreadyExists"`
	TokensUsed         int     `json:"tokensUsed"`
	EstimatedCost      float64 `json:"estimatedCost"`
}

// SourceSpec declaratively describes how records of one source table are
// turned into chunks: which column is the stable identity, which columns
// carry content, title and metadata, and how large chunks may grow.
// Specs are resolved once at startup and iterated uniformly.
type SourceSpec struct {
	Table           string   `json:"table"`
	IDColumn        string   `json:"idColumn"`
	TitleColumn     string   `json:"titleColumn,omitempty"`
	ContentColumns  []string `json:"contentColumns"`
	MetadataColumns []string `json:"metadataColumns,omitempty"`
	ChunkSize       int      `json:"chunkSize,omitempty"`
	ChunkOverlap    int      `json:"chunkOverlap,omitempty"`
}

// ScoredDocument is a similarity search hit: a stored document plus its
// cosine similarity to the query in [-1, 1].
type ScoredDocument struct {
	Document   *VectorDocument
	Similarity float32
}
