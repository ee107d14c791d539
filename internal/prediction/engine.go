// Package prediction derives spending insights from a user's transaction history.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/model"
	"github.com/Veraticus/balance/internal/service"
)

// Config holds the tunable thresholds for every insight.
type Config struct {
	Weeks              int     `mapstructure:"weeks"`
	Threshold          float64 `mapstructure:"threshold"`
	MinWeeks           int     `mapstructure:"min_weeks"`
	WantRatioThreshold float64 `mapstructure:"want_ratio_threshold"`
	MinTotalSpend      float64 `mapstructure:"min_total_spend"`
	SearchLimit        int     `mapstructure:"search_limit"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		Weeks:              4,
		Threshold:          1.5,
		MinWeeks:           4,
		WantRatioThreshold: 0.5,
		MinTotalSpend:      20,
		SearchLimit:        5,
	}
}

// Validate checks that the thresholds are usable.
func (c Config) Validate() error {
	if c.Weeks < 1 {
		return fmt.Errorf("%w: prediction.weeks must be at least 1", common.ErrInvalidConfig)
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("%w: prediction.threshold must be positive", common.ErrInvalidConfig)
	}
	if c.MinWeeks < 1 {
		return fmt.Errorf("%w: prediction.min_weeks must be at least 1", common.ErrInvalidConfig)
	}
	if c.WantRatioThreshold < 0 || c.WantRatioThreshold >= 1 {
		return fmt.Errorf("%w: prediction.want_ratio_threshold must be in [0, 1)", common.ErrInvalidConfig)
	}
	if c.MinTotalSpend < 0 {
		return fmt.Errorf("%w: prediction.min_total_spend must not be negative", common.ErrInvalidConfig)
	}
	if c.SearchLimit < 1 {
		return fmt.Errorf("%w: prediction.search_limit must be at least 1", common.ErrInvalidConfig)
	}
	return nil
}

// HistoryReader is the read side of storage the engine needs.
type HistoryReader interface {
	GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error)
	GetLabeledTransactions(ctx context.Context, userID string, since time.Time) ([]model.LabeledTransaction, error)
	GetEmbeddedTransactions(ctx context.Context, userID string) ([]model.EmbeddedTransaction, error)
	ListUserLabels(ctx context.Context, userID string) ([]model.UserLabel, error)
}

// QueryEmbedder turns a search query into a vector.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Engine computes insights on demand; nothing it returns is cached.
type Engine struct {
	history  HistoryReader
	embedder QueryEmbedder
	now      func() time.Time
	logger   *slog.Logger
	cfg      Config
}

// NewEngine creates a prediction engine. A nil embedder disables similarity search.
func NewEngine(history HistoryReader, embedder QueryEmbedder, cfg Config, now func() time.Time, logger *slog.Logger) (*Engine, error) {
	if history == nil {
		return nil, fmt.Errorf("history reader is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		history:  history,
		embedder: embedder,
		now:      now,
		logger:   logger,
		cfg:      cfg,
	}, nil
}

// Config returns the engine's thresholds.
func (e *Engine) Config() Config {
	return e.cfg
}

// CategoryStats returns the weekly statistics behind overspending alerts.
func (e *Engine) CategoryStats(ctx context.Context, userID string, weeks int) ([]model.CategorySpendingStat, error) {
	if weeks < 1 {
		weeks = e.cfg.Weeks
	}
	asOf := e.now()
	history, err := e.recent(ctx, userID, windowStart(asOf, weeks), asOf)
	if err != nil {
		return nil, err
	}
	return CategoryStats(userID, history, asOf, weeks), nil
}

// FindOverspending flags categories whose current week is anomalous.
// Non-positive arguments fall back to the configured defaults.
func (e *Engine) FindOverspending(ctx context.Context, userID string, weeks int, threshold float64) ([]model.OverspendingAlert, error) {
	if weeks < 1 {
		weeks = e.cfg.Weeks
	}
	if threshold <= 0 {
		threshold = e.cfg.Threshold
	}

	asOf := e.now()
	history, err := e.recent(ctx, userID, windowStart(asOf, weeks), asOf)
	if err != nil {
		return nil, err
	}

	alerts := FindOverspending(history, asOf, weeks, threshold)
	e.logger.Debug("overspending computed",
		"user_id", userID,
		"transactions", len(history),
		"alerts", len(alerts))
	return alerts, nil
}

// FindCancellationCandidates lists recurring, mostly discretionary merchants.
// The user's corrections take precedence over recorded ensemble labels.
func (e *Engine) FindCancellationCandidates(ctx context.Context, userID string, minWeeks int) ([]model.CancellationCandidate, error) {
	if minWeeks < 1 {
		minWeeks = e.cfg.MinWeeks
	}

	labeled, err := e.history.GetLabeledTransactions(ctx, userID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to load labeled transactions: %w", err)
	}

	corrections, err := e.history.ListUserLabels(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load corrections: %w", err)
	}
	labeled = ApplyCorrections(labeled, corrections)

	candidates := FindCancellationCandidates(labeled, e.now(), minWeeks, e.cfg.WantRatioThreshold, e.cfg.MinTotalSpend)
	e.logger.Debug("cancellation candidates computed",
		"user_id", userID,
		"transactions", len(labeled),
		"candidates", len(candidates))
	return candidates, nil
}

// SearchSimilarItems finds the user's past purchases closest to query.
// An embedding failure is reported as ErrSimilarityUnavailable, never as an empty result.
func (e *Engine) SearchSimilarItems(ctx context.Context, query, userID string, limit int) ([]model.SimilarItem, error) {
	if limit < 1 {
		limit = e.cfg.SearchLimit
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, common.NewUserError("Search query cannot be empty", errors.New("empty query"))
	}
	if e.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", common.ErrSimilarityUnavailable)
	}

	vector, err := e.embedder.Embed(ctx, model.NormalizeItemText(query))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrSimilarityUnavailable, err)
	}

	candidates, err := e.history.GetEmbeddedTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}

	return RankSimilar(vector, candidates, limit), nil
}

// PredictNextPurchase guesses the category and amount of the user's next purchase.
func (e *Engine) PredictNextPurchase(ctx context.Context, userID string) (model.PurchasePrediction, error) {
	history, err := e.history.GetTransactions(ctx, service.TransactionFilter{UserID: userID})
	if err != nil {
		return model.PurchasePrediction{}, fmt.Errorf("failed to load transactions: %w", err)
	}
	return PredictNextPurchase(history), nil
}

func (e *Engine) recent(ctx context.Context, userID string, start, end time.Time) ([]model.Transaction, error) {
	history, err := e.history.GetTransactions(ctx, service.TransactionFilter{
		UserID:    userID,
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return history, nil
}
