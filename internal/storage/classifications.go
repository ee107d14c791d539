package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/model"
)

const joinedTransactionColumns = `t.id, t.hash, t.user_id, t.merchant, t.amount, t.category, t.item_text, t.occurred_at`

// SaveClassification records the ensemble decision for a logged transaction.
// A later decision for the same transaction replaces the earlier one.
func (s *SQLiteStorage) SaveClassification(ctx context.Context, classification *model.Classification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateClassification(classification); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.saveClassificationTx(ctx, tx, classification)
	})
}

func (s *SQLiteStorage) saveClassificationTx(ctx context.Context, q queryable, classification *model.Classification) error {
	if classification.ClassifiedAt.IsZero() {
		classification.ClassifiedAt = time.Now()
	}

	sources := classification.Result.Sources
	if sources == nil {
		sources = []model.SourceResult{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to encode source results: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO classifications (
			transaction_id, label, confidence, strategy,
			needs_review, sources, classified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO UPDATE SET
			label = excluded.label,
			confidence = excluded.confidence,
			strategy = excluded.strategy,
			needs_review = excluded.needs_review,
			sources = excluded.sources,
			classified_at = excluded.classified_at
	`,
		classification.Transaction.ID,
		string(classification.Result.Label),
		classification.Result.Confidence,
		string(classification.Result.Strategy),
		classification.Result.NeedsReview,
		string(sourcesJSON),
		classification.ClassifiedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save classification: %w", err)
	}
	return nil
}

// SaveClassifiedTransaction appends a transaction and its decision atomically.
// It returns common.ErrDuplicateEntry when the transaction is already logged.
func (s *SQLiteStorage) SaveClassifiedTransaction(ctx context.Context, classification *model.Classification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(&classification.Transaction); err != nil {
		return err
	}
	if err := validateClassification(classification); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		inserted, err := s.saveTransactionsTx(ctx, tx, []model.Transaction{classification.Transaction})
		if err != nil {
			return err
		}
		if inserted == 0 {
			return fmt.Errorf("transaction %s: %w", classification.Transaction.ID, common.ErrDuplicateEntry)
		}
		return s.saveClassificationTx(ctx, tx, classification)
	})
}

// GetClassification retrieves the decision recorded for a transaction.
func (s *SQLiteStorage) GetClassification(ctx context.Context, transactionID string) (*model.Classification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+joinedTransactionColumns+`,
			c.label, c.confidence, c.strategy, c.needs_review, c.sources, c.classified_at
		FROM classifications c
		JOIN transactions t ON t.id = c.transaction_id
		WHERE c.transaction_id = ?
	`, transactionID)

	var (
		label, strategy, sourcesJSON string
		classifiedAt                 time.Time
		classification               model.Classification
	)

	txn, err := scanTransaction(row,
		&label,
		&classification.Result.Confidence,
		&strategy,
		&classification.Result.NeedsReview,
		&sourcesJSON,
		&classifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("classification for %s: %w", transactionID, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(sourcesJSON), &classification.Result.Sources); err != nil {
		return nil, fmt.Errorf("failed to decode source results: %w", err)
	}

	classification.Transaction = *txn
	classification.Result.Label = model.Label(label)
	classification.Result.Strategy = model.Strategy(strategy)
	classification.ClassifiedAt = classifiedAt.UTC()
	return &classification, nil
}

// GetLabeledTransactions returns a user's classified transactions since the given time,
// each carrying its recorded ensemble label.
func (s *SQLiteStorage) GetLabeledTransactions(ctx context.Context, userID string, since time.Time) ([]model.LabeledTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+joinedTransactionColumns+`, c.label
		FROM transactions t
		JOIN classifications c ON c.transaction_id = t.id
		WHERE t.user_id = ? AND t.occurred_at >= ?
		ORDER BY t.occurred_at ASC, t.id ASC
	`, userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query labeled transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	labeled := []model.LabeledTransaction{}
	for rows.Next() {
		var label string
		txn, err := scanTransaction(rows, &label)
		if err != nil {
			return nil, err
		}
		labeled = append(labeled, model.LabeledTransaction{
			Transaction: *txn,
			Label:       model.Label(label),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating labeled transactions: %w", err)
	}
	return labeled, nil
}
