// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/balance/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	UserID    string
	Merchant  string
	Limit     int
	Offset    int
}

// TransactionStore is the append-only transaction log.
type TransactionStore interface {
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	TransactionExists(ctx context.Context, hash string) (bool, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
}

// ClassificationStore records ensemble decisions.
type ClassificationStore interface {
	SaveClassification(ctx context.Context, classification *model.Classification) error
	// SaveClassifiedTransaction writes the transaction and its decision atomically.
	SaveClassifiedTransaction(ctx context.Context, classification *model.Classification) error
	GetClassification(ctx context.Context, transactionID string) (*model.Classification, error)
	GetLabeledTransactions(ctx context.Context, userID string, since time.Time) ([]model.LabeledTransaction, error)
}

// LabelStore is the append-only log of user-confirmed labels.
type LabelStore interface {
	AppendUserLabel(ctx context.Context, label *model.UserLabel) error
	GetUserLabels(ctx context.Context, userID, merchant string) ([]model.UserLabel, error)
	ListUserLabels(ctx context.Context, userID string) ([]model.UserLabel, error)
}

// EmbeddingStore keeps one vector per transaction.
type EmbeddingStore interface {
	SaveEmbedding(ctx context.Context, embedding *model.Embedding) error
	GetEmbeddedTransactions(ctx context.Context, userID string) ([]model.EmbeddedTransaction, error)
	GetTransactionsWithoutEmbedding(ctx context.Context, userID string, limit int) ([]model.Transaction, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	TransactionStore
	ClassificationStore
	LabelStore
	EmbeddingStore

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Notifier delivers messages to the user outside the request path.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}

// ImportStats summarizes a bulk transaction import.
type ImportStats struct {
	Received   int
	Inserted   int
	Duplicates int
	Classified int
	Failed     int
	Duration   time.Duration
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
