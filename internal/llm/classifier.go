package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/balance/internal/model"
)

// Classifier turns a Client into a want/need judge with caching and rate limiting.
type Classifier struct {
	client  Client
	cache   *judgmentCache
	limiter *rateLimiter
	logger  *slog.Logger
	name    string
}

// NewClassifier creates a classifier for the configured provider.
func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewClassifierWithClient(client, cfg, logger)
}

// NewClassifierWithClient wraps an existing client.
func NewClassifierWithClient(client Client, cfg Config, logger *slog.Logger) (*Classifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := newJudgmentCache(cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		client:  client,
		cache:   cache,
		limiter: newRateLimiter(cfg.RateLimit),
		logger:  logger,
		name:    cfg.Provider,
	}, nil
}

// Judge classifies a transaction. A model that asks for a human decision
// yields LabelUnknown, which the ensemble treats as an abstention.
func (c *Classifier) Judge(ctx context.Context, txn model.Transaction) (model.SourceResult, error) {
	key := cacheKey(txn)
	if resp, found := c.cache.get(key); found {
		c.logger.Debug("cache hit for transaction",
			"transaction_id", txn.ID,
			"merchant", txn.Merchant,
			"provider", c.name)
		return toSourceResult(resp), nil
	}

	if err := c.limiter.wait(ctx); err != nil {
		return model.SourceResult{}, err
	}

	resp, err := c.client.Classify(ctx, buildPrompt(txn))
	if err != nil {
		return model.SourceResult{}, err
	}

	c.cache.set(key, resp)
	return toSourceResult(resp), nil
}

// Close releases the cache.
func (c *Classifier) Close() {
	c.cache.close()
}

func toSourceResult(resp ClassificationResponse) model.SourceResult {
	label := model.Label(resp.Label)
	if resp.AskUser {
		label = model.LabelUnknown
	}
	return model.SourceResult{
		Label:      label,
		Confidence: resp.Confidence,
		Reasoning:  resp.Reasoning,
	}
}
