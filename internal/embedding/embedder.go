// Package embedding turns item text into vectors for similarity search.
package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Embedder converts text to vector embeddings.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding size, or 0 when the backend decides.
	Dimensions() int
}

// Config selects and tunes the embedding backend.
type Config struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
	CacheSize  int64  `mapstructure:"cache_size"`
}

// DefaultConfig uses the local hashing embedder.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderHash,
		Model:      "token-hash",
		Dimensions: 256,
		CacheSize:  1000,
	}
}

// Provider names.
const (
	ProviderHash   = "hash"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// New builds the configured embedder, wrapped in a query cache when CacheSize > 0.
func New(cfg Config) (Embedder, error) {
	var (
		base Embedder
		err  error
	)

	switch strings.ToLower(cfg.Provider) {
	case ProviderHash, "":
		base = NewHashEmbedder(cfg.Dimensions)
	case ProviderOpenAI:
		base, err = newOpenAIEmbedder(cfg)
	case ProviderOllama:
		base, err = newOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize <= 0 {
		return base, nil
	}
	return NewCached(base, cfg.CacheSize)
}

// normalize converts a vector to unit length. Zero vectors are returned unchanged.
func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}

	norm = math.Sqrt(norm)
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / norm)
	}
	return normalized
}
