package embedding

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(128)
	ctx := context.Background()
	assert.Equal(t, 128, e.Dimensions())

	latte, err := e.Embed(ctx, "Starbucks oat milk latte")
	require.NoError(t, err)
	require.Len(t, latte, 128)

	var norm float64
	for _, v := range latte {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)

	again, err := e.Embed(ctx, "STARBUCKS   oat-milk latte!")
	require.NoError(t, err)
	assert.Equal(t, latte, again, "normalization makes embeddings insensitive to case and punctuation")

	similar, err := e.Embed(ctx, "oat milk latte")
	require.NoError(t, err)
	unrelated, err := e.Embed(ctx, "car insurance premium")
	require.NoError(t, err)
	assert.Greater(t, dot(latte, similar), dot(latte, unrelated))

	empty, err := e.Embed(ctx, "   ")
	require.NoError(t, err)
	assert.Len(t, empty, 128)
	assert.Zero(t, dot(empty, empty))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.Embed(canceled, "latte")
	assert.ErrorIs(t, err, context.Canceled)
}

type countingEmbedder struct {
	err   error
	calls atomic.Int32
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) Dimensions() int { return 2 }

func TestCached(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := NewCached(inner, 100)
	require.NoError(t, err)
	defer cached.Close()
	ctx := context.Background()

	first, err := cached.Embed(ctx, "coffee")
	require.NoError(t, err)
	cached.Wait()

	second, err := cached.Embed(ctx, "coffee")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, 2, cached.Dimensions())
}

func TestCached_DoesNotCacheErrors(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("offline")}
	cached, err := NewCached(inner, 100)
	require.NoError(t, err)
	defer cached.Close()

	_, err = cached.Embed(context.Background(), "coffee")
	require.Error(t, err)
	cached.Wait()
	_, err = cached.Embed(context.Background(), "coffee")
	require.Error(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "default", config: DefaultConfig()},
		{name: "hash without cache", config: Config{Provider: ProviderHash, Dimensions: 32}},
		{name: "openai", config: Config{Provider: ProviderOpenAI, APIKey: "k", CacheSize: 10}},
		{name: "openai without key", config: Config{Provider: ProviderOpenAI}, wantErr: true},
		{name: "ollama", config: Config{Provider: ProviderOllama, Model: "nomic-embed-text"}},
		{name: "ollama without model", config: Config{Provider: ProviderOllama}, wantErr: true},
		{name: "unknown", config: Config{Provider: "word2vec"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, e)
		})
	}
}
