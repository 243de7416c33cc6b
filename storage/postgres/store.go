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


package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/semaphoric/vecmig/storage"
)

// Store implements storage.SourceRepository and storage.VectorRepository on
// PostgreSQL with the pgvector extension. Connection-pool access is bounded:
// each operation acquires a connection from the pool and releases it
// promptly, never holding one across a whole batch.
type Store struct {
	pool      *pgxpool.Pool
	dimension int
	logger    *slog.Logger
}

var (
	_ storage.SourceRepository = (*Store)(nil)
	_ storage.VectorRepository = (*Store)(nil)
)

// New connects to the database and verifies the connection.
// dimension is the embedding dimension of the vector column.
func New(ctx context.Context, connString string, dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dimension)
	}

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	// Small bounded pool so a migration run cannot exhaust the database.
	if config.MaxConns > 8 {
		config.MaxConns = 8
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{
		pool:      pool,
		dimension: dimension,
		logger:    slog.Default().With("component", "postgres-store"),
	}, nil
}

// Init creates the vector table, the natural-key unique constraint, and the
// cosine-distance index if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS vector_documents (
		id BIGSERIAL PRIMARY KEY,
		source_table TEXT NOT NULL,
		source_id TEXT NOT NULL,
		chunk_index INT NOT NULL,
		total_chunks INT NOT NULL DEFAULT 1,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		metadata JSONB,
		embedding vector(%d),
		embedding_model TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		indexed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (source_table, source_id, chunk_index)
	);

	CREATE INDEX IF NOT EXISTS idx_vector_documents_embedding
		ON vector_documents USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_vector_documents_source
		ON vector_documents (source_table);
	`, s.dimension)

	_, err := s.pool.Exec(ctx, query)
	return err
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Debug("postgres connection pool closed")
	}
	return nil
}
