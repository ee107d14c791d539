package embedding

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/Veraticus/balance/internal/model"
)

const defaultHashDimensions = 256

// HashEmbedder projects tokens into a fixed number of signed buckets.
// Texts sharing words land close together; it needs no network and is deterministic.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder creates a hashing embedder with the given dimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = defaultHashDimensions
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed hashes each normalized token (and each adjacent pair) into the vector.
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, h.dimensions)
	tokens := strings.Fields(model.NormalizeItemText(text))
	for i, token := range tokens {
		h.add(vec, token, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+token, 0.5)
		}
	}

	return normalize(vec), nil
}

func (h *HashEmbedder) add(vec []float32, feature string, weight float32) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()

	bucket := sum % uint64(h.dimensions)
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[bucket] += weight
}

// Dimensions returns the embedding size.
func (h *HashEmbedder) Dimensions() int {
	return h.dimensions
}
