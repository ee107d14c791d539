// Package storage provides the SQLite persistence layer for transactions, labels and embeddings.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/balance/internal/model"
)

// Validation errors.
var (
	ErrNilContext            = errors.New("context cannot be nil")
	ErrEmptyString           = errors.New("string parameter cannot be empty")
	ErrNilParameter          = errors.New("parameter cannot be nil")
	ErrEmptySlice            = errors.New("slice cannot be empty")
	ErrInvalidTransaction    = errors.New("invalid transaction")
	ErrInvalidClassification = errors.New("invalid classification")
	ErrInvalidUserLabel      = errors.New("invalid user label")
	ErrInvalidEmbedding      = errors.New("invalid embedding")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidTransaction)
	}
	if strings.TrimSpace(txn.Merchant) == "" {
		return fmt.Errorf("%w: missing merchant", ErrInvalidTransaction)
	}
	if txn.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidTransaction)
	}
	if math.IsNaN(txn.Amount) || math.IsInf(txn.Amount, 0) {
		return fmt.Errorf("%w: amount is not finite", ErrInvalidTransaction)
	}
	return nil
}

// validateClassification validates a classification.
func validateClassification(classification *model.Classification) error {
	if classification == nil {
		return fmt.Errorf("%w: classification", ErrNilParameter)
	}
	if classification.Transaction.ID == "" {
		return fmt.Errorf("%w: missing transaction ID", ErrInvalidClassification)
	}
	if _, err := model.ParseLabel(string(classification.Result.Label)); err != nil || classification.Result.Label == "" {
		return fmt.Errorf("%w: label %q", ErrInvalidClassification, classification.Result.Label)
	}
	if classification.Result.Confidence < 0 || classification.Result.Confidence > 1 {
		return fmt.Errorf("%w: confidence %.2f out of range", ErrInvalidClassification, classification.Result.Confidence)
	}
	return nil
}

// validateUserLabel validates an entry destined for the label log.
func validateUserLabel(label *model.UserLabel) error {
	if label == nil {
		return fmt.Errorf("%w: user label", ErrNilParameter)
	}
	if label.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidUserLabel)
	}
	if label.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidUserLabel)
	}
	if strings.TrimSpace(label.Merchant) == "" {
		return fmt.Errorf("%w: missing merchant", ErrInvalidUserLabel)
	}
	if !label.Label.IsDecisive() {
		return fmt.Errorf("%w: label must be need or want, got %q", ErrInvalidUserLabel, label.Label)
	}
	if label.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidUserLabel)
	}
	return nil
}

// validateEmbedding validates an embedding row.
func validateEmbedding(embedding *model.Embedding) error {
	if embedding == nil {
		return fmt.Errorf("%w: embedding", ErrNilParameter)
	}
	if embedding.TransactionID == "" {
		return fmt.Errorf("%w: missing transaction ID", ErrInvalidEmbedding)
	}
	if len(embedding.Vector) == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidEmbedding)
	}
	return nil
}
