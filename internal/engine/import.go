package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/model"
	"github.com/Veraticus/balance/internal/rules"
	"github.com/Veraticus/balance/internal/service"
)

// ProgressFunc is called after each item of a bulk operation.
type ProgressFunc func(done, total int)

// ImportTransactions appends a batch of purchases for userID and classifies each new one.
// Duplicates are skipped. A transaction no source could classify is still logged and
// counted as Failed.
func (c *Coach) ImportTransactions(ctx context.Context, userID string, transactions []model.Transaction, progress ProgressFunc) (service.ImportStats, error) {
	start := time.Now()
	stats := service.ImportStats{Received: len(transactions)}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return stats, fmt.Errorf("%w: user ID is required", common.ErrInvalidTransaction)
	}

	for i, txn := range transactions {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		if err := c.importOne(ctx, userID, txn, &stats); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}
		if progress != nil {
			progress(i+1, len(transactions))
		}
	}

	stats.Duration = time.Since(start)
	c.logger.Info("import complete",
		"user_id", userID,
		"received", stats.Received,
		"inserted", stats.Inserted,
		"duplicates", stats.Duplicates,
		"classified", stats.Classified,
		"failed", stats.Failed,
		"duration", stats.Duration)
	return stats, nil
}

func (c *Coach) importOne(ctx context.Context, userID string, txn model.Transaction, stats *service.ImportStats) error {
	txn, err := c.prepareImported(userID, txn)
	if err != nil {
		c.logger.Warn("skipping invalid transaction", "transaction_id", txn.ID, "error", err)
		stats.Failed++
		return nil
	}

	exists, err := c.storage.TransactionExists(ctx, txn.Hash)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate: %w", err)
	}
	if exists {
		stats.Duplicates++
		return nil
	}

	_, err = c.classifyAndStore(ctx, txn)
	switch {
	case err == nil:
		stats.Inserted++
		stats.Classified++
		return nil
	case errors.Is(err, common.ErrDuplicateEntry):
		stats.Duplicates++
		return nil
	case errors.Is(err, common.ErrClassificationUnavailable):
		// Keep the purchase in the log even without a decision.
		inserted, saveErr := c.storage.SaveTransactions(ctx, []model.Transaction{txn})
		if saveErr != nil {
			return fmt.Errorf("failed to save unclassified transaction: %w", saveErr)
		}
		stats.Inserted += inserted
		stats.Failed++
		return nil
	default:
		return err
	}
}

func (c *Coach) prepareImported(userID string, txn model.Transaction) (model.Transaction, error) {
	txn.UserID = userID
	txn.Merchant = strings.TrimSpace(txn.Merchant)
	if txn.Merchant == "" {
		return txn, fmt.Errorf("%w: merchant is required", common.ErrInvalidTransaction)
	}
	if err := validateAmount(txn.Amount); err != nil {
		return txn, err
	}
	if txn.Timestamp.IsZero() {
		return txn, fmt.Errorf("%w: timestamp is required", common.ErrInvalidTransaction)
	}
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if strings.TrimSpace(txn.Category) == "" {
		txn.Category = rules.InferCategory(txn.Merchant)
	}
	txn.ItemText = model.NormalizeItemText(txn.ItemText)
	txn.Timestamp = txn.Timestamp.UTC()
	txn.Hash = txn.GenerateHash()
	return txn, nil
}

// BackfillEmbeddings embeds up to limit stored transactions that have no vector yet.
// It returns how many were embedded.
func (c *Coach) BackfillEmbeddings(ctx context.Context, userID string, limit int, progress ProgressFunc) (int, error) {
	if c.embedder == nil {
		return 0, fmt.Errorf("%w: no embedder configured", common.ErrSimilarityUnavailable)
	}

	pending, err := c.storage.GetTransactionsWithoutEmbedding(ctx, userID, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list unembedded transactions: %w", err)
	}

	embedded := 0
	for i, txn := range pending {
		if err := ctx.Err(); err != nil {
			return embedded, err
		}
		if err := c.embedTransaction(ctx, txn); err != nil {
			return embedded, fmt.Errorf("failed to embed transaction %s: %w", txn.ID, err)
		}
		embedded++
		if progress != nil {
			progress(i+1, len(pending))
		}
	}

	c.logger.Info("embeddings backfilled", "user_id", userID, "count", embedded)
	return embedded, nil
}
