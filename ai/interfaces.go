package ai

import "context"

// Embedding is the result of one provider call for one input text.
type Embedding struct {
	// Vector is the embedding, normalized to unit length.
	Vector []float32

	// Tokens is the number of input tokens consumed by the call.
	// Zero for cache hits and placeholder vectors.
	Tokens int

	// Model identifies the embedding model that produced the vector.
	// Placeholder vectors carry the distinguished PlaceholderModel tag so
	// they can be found and re-processed later.
	Model string
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates an embedding for a single text string.
	// Oversized input is truncated, never rejected.
	EmbedText(ctx context.Context, text string) (*Embedding, error)

	// EmbedTexts generates embeddings for multiple texts in one batch.
	// The returned slice matches the order of the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([]*Embedding, error)

	// Model returns the configured embedding model identifier.
	Model() string
}

// PlaceholderModel tags vectors written in degraded mode after all provider
// retries were exhausted. Rows carrying this tag hold no real embedding and
// are candidates for re-processing.
const PlaceholderModel = "placeholder"
