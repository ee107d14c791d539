package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/model"
	"github.com/Veraticus/balance/internal/notify"
	"github.com/Veraticus/balance/internal/rules"
)

// TransactionInput is a purchase as it arrives from a caller.
type TransactionInput struct {
	// Timestamp defaults to now when zero.
	Timestamp time.Time
	Merchant  string
	// Category is inferred from the merchant when empty.
	Category string
	UserID   string
	ItemText string
	Amount   float64
}

// Classified is a persisted transaction and its ensemble decision.
type Classified struct {
	Transaction model.Transaction
	Result      model.EnsembleResult
}

// ClassifyTransaction validates the input, asks every source, merges their opinions and
// appends the result to the log. Individual source failures are tolerated; only when no
// source responds does it return common.ErrClassificationUnavailable.
func (c *Coach) ClassifyTransaction(ctx context.Context, input TransactionInput) (*Classified, error) {
	txn, err := c.buildTransaction(input)
	if err != nil {
		return nil, err
	}

	exists, err := c.storage.TransactionExists(ctx, txn.Hash)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("purchase at %s on %s: %w",
			txn.Merchant, txn.Timestamp.Format(time.RFC3339), common.ErrDuplicateEntry)
	}

	return c.classifyAndStore(ctx, txn)
}

func (c *Coach) buildTransaction(input TransactionInput) (model.Transaction, error) {
	userID := strings.TrimSpace(input.UserID)
	merchant := strings.TrimSpace(input.Merchant)

	if userID == "" {
		return model.Transaction{}, fmt.Errorf("%w: user ID is required", common.ErrInvalidTransaction)
	}
	if merchant == "" {
		return model.Transaction{}, fmt.Errorf("%w: merchant is required", common.ErrInvalidTransaction)
	}
	if err := validateAmount(input.Amount); err != nil {
		return model.Transaction{}, err
	}

	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = rules.InferCategory(merchant)
	}

	ts := input.Timestamp
	if ts.IsZero() {
		ts = c.now()
	}

	txn := model.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Merchant:  merchant,
		Category:  category,
		ItemText:  model.NormalizeItemText(input.ItemText),
		Amount:    input.Amount,
		Timestamp: ts.UTC(),
	}
	txn.Hash = txn.GenerateHash()
	return txn, nil
}

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: amount must be a finite number", common.ErrInvalidTransaction)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %.2f", common.ErrInvalidTransaction, amount)
	}
	return nil
}

// classifyAndStore runs the ensemble for an already validated transaction.
func (c *Coach) classifyAndStore(ctx context.Context, txn model.Transaction) (*Classified, error) {
	report := c.dispatcher.Collect(ctx, txn)

	result, err := c.combiner.Combine(report.Results)
	if err != nil {
		c.logger.Warn("no source produced a classification",
			"transaction_id", txn.ID,
			"merchant", txn.Merchant,
			"sources", len(report.Outcomes))
		return nil, err
	}

	classification := &model.Classification{
		Transaction:  txn,
		Result:       result,
		ClassifiedAt: c.now().UTC(),
	}
	if err := c.storage.SaveClassifiedTransaction(ctx, classification); err != nil {
		c.logger.Error("failed to persist classification",
			"transaction_id", txn.ID,
			"error", err)
		return nil, fmt.Errorf("failed to save classification: %w", err)
	}

	c.logger.Info("transaction classified",
		"transaction_id", txn.ID,
		"user_id", txn.UserID,
		"merchant", txn.Merchant,
		"label", result.Label,
		"confidence", result.Confidence,
		"strategy", result.Strategy,
		"responded", report.Responded(),
		"needs_review", result.NeedsReview)

	c.embed(ctx, txn)
	if result.NeedsReview {
		c.requestReview(ctx, txn, result)
	}

	return &Classified{Transaction: txn, Result: result}, nil
}

// embed stores the transaction's vector. Failures only cost similarity coverage,
// which the embed command can backfill later.
func (c *Coach) embed(ctx context.Context, txn model.Transaction) {
	if c.embedder == nil {
		return
	}
	if err := c.embedTransaction(ctx, txn); err != nil {
		c.logger.Warn("failed to embed transaction",
			"transaction_id", txn.ID,
			"error", err)
	}
}

func (c *Coach) embedTransaction(ctx context.Context, txn model.Transaction) error {
	vector, err := c.embedder.Embed(ctx, txn.EmbeddingText())
	if err != nil {
		return err
	}
	return c.storage.SaveEmbedding(ctx, &model.Embedding{
		TransactionID: txn.ID,
		Model:         c.embeddingModel,
		Vector:        vector,
		CreatedAt:     c.now().UTC(),
	})
}

func (c *Coach) requestReview(ctx context.Context, txn model.Transaction, result model.EnsembleResult) {
	if c.notifier == nil {
		c.logger.Debug("classification needs review",
			"transaction_id", txn.ID,
			"confidence", result.Confidence)
		return
	}

	err := c.notifier.Notify(ctx, txn.UserID, notify.ReviewPrompt(txn, result))
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("failed to send review prompt",
			"transaction_id", txn.ID,
			"user_id", txn.UserID,
			"error", err)
	}
}
