package openai

import (
	"hash/fnv"

	"github.com/semaphoric/vecmig/core"
)

// placeholderVector builds a deterministic unit vector from the text so that
// degraded-mode writes stay stable across runs. The vector carries no real
// semantic signal; rows written with it are tagged ai.PlaceholderModel and
// should be re-embedded once the provider recovers.
func placeholderVector(text string, dim int) []float32 {
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
