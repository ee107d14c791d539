package llm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/model"
)

type fakeClient struct {
	err     error
	prompts []string
	resp    ClassificationResponse
	calls   atomic.Int32
}

func (f *fakeClient) Classify(_ context.Context, prompt string) (ClassificationResponse, error) {
	f.calls.Add(1)
	f.prompts = append(f.prompts, prompt)
	return f.resp, f.err
}

func newTestClassifier(t *testing.T, client Client) *Classifier {
	t.Helper()
	c, err := NewClassifierWithClient(client, Config{Provider: "fake", RateLimit: 600}, common.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func coffee() model.Transaction {
	return model.Transaction{ID: "t1", UserID: "u1", Merchant: "Starbucks", Category: "Coffee", Amount: 5.25, Timestamp: time.Now()}
}

func TestClassifier_Judge(t *testing.T) {
	client := &fakeClient{resp: ClassificationResponse{Label: "want", Confidence: 0.85, Reasoning: "treat"}}
	c := newTestClassifier(t, client)

	got, err := c.Judge(context.Background(), coffee())
	require.NoError(t, err)
	assert.Equal(t, model.LabelWant, got.Label)
	assert.InDelta(t, 0.85, got.Confidence, 1e-9)
	assert.Equal(t, "treat", got.Reasoning)

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "Merchant: Starbucks")
	assert.Contains(t, client.prompts[0], "Amount: $5.25")
	assert.Contains(t, client.prompts[0], "Category: Coffee")
}

func TestClassifier_JudgeCachesIdenticalPurchases(t *testing.T) {
	client := &fakeClient{resp: ClassificationResponse{Label: "want", Confidence: 0.85}}
	c := newTestClassifier(t, client)
	ctx := context.Background()

	_, err := c.Judge(ctx, coffee())
	require.NoError(t, err)
	c.cache.wait()

	again := coffee()
	again.ID = "t2"
	again.Merchant = "  STARBUCKS "
	got, err := c.Judge(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, model.LabelWant, got.Label)
	assert.Equal(t, int32(1), client.calls.Load())

	different := coffee()
	different.Amount = 7.5
	_, err = c.Judge(ctx, different)
	require.NoError(t, err)
	assert.Equal(t, int32(2), client.calls.Load())
}

func TestClassifier_AskUserAbstains(t *testing.T) {
	client := &fakeClient{resp: ClassificationResponse{Label: "want", Confidence: 0.4, AskUser: true}}
	got, err := newTestClassifier(t, client).Judge(context.Background(), coffee())
	require.NoError(t, err)
	assert.Equal(t, model.LabelUnknown, got.Label)
}

func TestClassifier_ClientError(t *testing.T) {
	client := &fakeClient{err: errors.New("upstream down")}
	_, err := newTestClassifier(t, client).Judge(context.Background(), coffee())
	assert.ErrorContains(t, err, "upstream down")
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "anthropic", config: Config{Provider: "anthropic", APIKey: "k"}},
		{name: "openai", config: Config{Provider: "OpenAI", APIKey: "k"}},
		{name: "gemini", config: Config{Provider: "gemini", APIKey: "k"}},
		{name: "anthropic without key", config: Config{Provider: "anthropic"}, wantErr: "API key"},
		{name: "openai without key", config: Config{Provider: "openai"}, wantErr: "API key"},
		{name: "gemini without key", config: Config{Provider: "gemini"}, wantErr: "API key"},
		{name: "unknown provider", config: Config{Provider: "llama"}, wantErr: "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{Provider: "none"}.Enabled())
	assert.True(t, Config{Provider: "anthropic"}.Enabled())
}
