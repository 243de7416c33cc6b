package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/semaphoric/vecmig/core"
)

const upsertQuery = `
	INSERT INTO vector_documents
		(source_table, source_id, chunk_index, total_chunks, title, content,
		 metadata, embedding, embedding_model, indexed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (source_table, source_id, chunk_index) DO UPDATE SET
		total_chunks = EXCLUDED.total_chunks,
		title = EXCLUDED.title,
		content = EXCLUDED.content,
		metadata = EXCLUDED.metadata,
		embedding = EXCLUDED.embedding,
		embedding_model = EXCLUDED.embedding_model,
		indexed_at = EXCLUDED.indexed_at
`

// Upsert inserts or updates one document by its natural key in a single
// round trip. created_at is set on insert and never touched on update.
func (s *Store) Upsert(ctx context.Context, doc *core.VectorDocument) error {
	if err := core.ValidateVectorDocument(doc); err != nil {
		return err
	}

	args, err := upsertArgs(doc)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, upsertQuery, args...)
	return err
}

// UpsertBatch applies the documents in one transaction. Any single failure
// rolls back the whole batch.
func (s *Store) UpsertBatch(ctx context.Context, docs []*core.VectorDocument) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, doc := range docs {
		if err := core.ValidateVectorDocument(doc); err != nil {
			return err
		}
		args, err := upsertArgs(doc)
		if err != nil {
			return err
		}
		batch.Queue(upsertQuery, args...)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("batch upsert of %d documents: %w", len(docs), err)
	}
	return tx.Commit(ctx)
}

// Exists reports whether a document with the given natural key and embedding
// model is already stored.
func (s *Store) Exists(ctx context.Context, sourceTable, sourceID string, chunkIndex int, model string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM vector_documents
			WHERE source_table = $1 AND source_id = $2 AND chunk_index = $3
			  AND embedding_model = $4
		)`, sourceTable, sourceID, chunkIndex, model).Scan(&exists)
	return exists, err
}

// Search returns up to limit documents ordered by descending cosine
// similarity to the query vector. A positive minSimilarity discards hits
// scoring below it before truncation; zero disables the threshold, so even
// anti-correlated documents (similarity < 0) can surface. A non-empty tables
// set restricts the scope; results across scoped tables come back globally
// ordered.
func (s *Store) Search(ctx context.Context, vector []float32, limit int, minSimilarity float32, tables []string) ([]*core.ScoredDocument, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if limit <= 0 {
		limit = 10
	}
	if tables == nil {
		tables = []string{}
	}

	query := `
		SELECT source_table, source_id, chunk_index, total_chunks, title,
		       content, metadata, embedding, embedding_model, created_at,
		       indexed_at,
		       1 - (embedding <=> $1) AS similarity
		FROM vector_documents
		WHERE embedding IS NOT NULL
		  AND (cardinality($2::text[]) = 0 OR source_table = ANY($2::text[]))
		  AND ($3 = 0 OR 1 - (embedding <=> $1) >= $3)
		ORDER BY embedding <=> $1
		LIMIT $4
	`
	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), tables, minSimilarity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*core.ScoredDocument
	for rows.Next() {
		doc := &core.VectorDocument{}
		var (
			metadataRaw []byte
			embedding   pgvector.Vector
			similarity  float32
		)
		if err := rows.Scan(
			&doc.SourceTable,
			&doc.SourceID,
			&doc.ChunkIndex,
			&doc.TotalChunks,
			&doc.Title,
			&doc.Content,
			&metadataRaw,
			&embedding,
			&doc.EmbeddingModel,
			&doc.CreatedAt,
			&doc.IndexedAt,
			&similarity,
		); err != nil {
			return nil, err
		}

		doc.Vector = embedding.Slice()
		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s/%s: %w", doc.SourceTable, doc.SourceID, err)
			}
		}

		results = append(results, &core.ScoredDocument{Document: doc, Similarity: similarity})
	}
	return results, rows.Err()
}

func upsertArgs(doc *core.VectorDocument) ([]any, error) {
	var metadataRaw []byte
	if len(doc.Metadata) > 0 {
		var err error
		metadataRaw, err = json.Marshal(doc.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata for %s/%s: %w", doc.SourceTable, doc.SourceID, err)
		}
	}

	indexedAt := doc.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now().UTC()
	}

	return []any{
		doc.SourceTable,
		doc.SourceID,
		doc.ChunkIndex,
		doc.TotalChunks,
		doc.Title,
		doc.Content,
		metadataRaw,
		pgvector.NewVector(doc.Vector),
		doc.EmbeddingModel,
		indexedAt,
	}, nil
}
