package embedding

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
)

// funcEmbedder adapts a chromem-go embedding function.
type funcEmbedder struct {
	embed      chromem.EmbeddingFunc
	dimensions int
}

func newOpenAIEmbedder(cfg Config) (Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI embedding API key is required")
	}
	embeddingModel := chromem.EmbeddingModelOpenAI3Small
	if cfg.Model != "" {
		embeddingModel = chromem.EmbeddingModelOpenAI(cfg.Model)
	}
	return &funcEmbedder{
		embed:      chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, embeddingModel),
		dimensions: cfg.Dimensions,
	}, nil
}

func newOllamaEmbedder(cfg Config) (Embedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama embedding model is required")
	}
	// An empty base URL selects chromem's local Ollama default.
	return &funcEmbedder{
		embed:      chromem.NewEmbeddingFuncOllama(cfg.Model, cfg.BaseURL),
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed implements Embedder.
func (f *funcEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := f.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if f.dimensions > 0 && len(vec) != f.dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), f.dimensions)
	}
	return vec, nil
}

// Dimensions implements Embedder.
func (f *funcEmbedder) Dimensions() int {
	return f.dimensions
}
