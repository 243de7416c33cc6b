package mock

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/semaphoric/vecmig/ai"
	"github.com/semaphoric/vecmig/core"
)

// Embedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields and is safe for
// concurrent use, matching the worker-pool call pattern of the migrator.
type Embedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) (*ai.Embedding, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([]*ai.Embedding, error)

	// ModelName is reported by Model. Defaults to "mock-embedder".
	ModelName string

	// Dimension of generated vectors. Defaults to 8.
	Dimension int

	mu        sync.Mutex
	callCount int
	texts     []string
}

// NewEmbedder creates a mock embedder with default deterministic behavior.
// Returns the concrete type to allow test assertions.
func NewEmbedder() *Embedder {
	return &Embedder{}
}

// Model returns the mock model identifier.
func (m *Embedder) Model() string {
	if m.ModelName == "" {
		return "mock-embedder"
	}
	return m.ModelName
}

// EmbedText generates a deterministic embedding based on the text hash.
func (m *Embedder) EmbedText(ctx context.Context, text string) (*ai.Embedding, error) {
	m.record(text)

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	return m.deterministic(text), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *Embedder) EmbedTexts(ctx context.Context, texts []string) ([]*ai.Embedding, error) {
	m.record(texts...)

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	results := make([]*ai.Embedding, len(texts))
	for i, text := range texts {
		results[i] = m.deterministic(text)
	}
	return results, nil
}

// CallCount returns the number of provider calls made (one per text).
func (m *Embedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Texts returns a copy of all texts submitted so far, in submission order.
func (m *Embedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}

// Reset clears the recorded calls and injected behavior.
func (m *Embedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.texts = nil
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

func (m *Embedder) record(texts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount += len(texts)
	m.texts = append(m.texts, texts...)
}

func (m *Embedder) deterministic(text string) *ai.Embedding {
	dim := m.Dimension
	if dim <= 0 {
		dim = 8
	}
	return &ai.Embedding{
		Vector: deterministicVector(text, dim),
		Tokens: (len(text) + 3) / 4,
		Model:  m.Model(),
	}
}

// deterministicVector creates a unit vector from text so that the same text
// always produces the same embedding.
func deterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/500.0 - 1.0
	}
	return core.NormalizeVector(vector)
}
