package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/Veraticus/balance/internal/model"
)

// SaveEmbedding stores or replaces the vector for a transaction.
func (s *SQLiteStorage) SaveEmbedding(ctx context.Context, embedding *model.Embedding) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEmbedding(embedding); err != nil {
		return err
	}

	if embedding.CreatedAt.IsZero() {
		embedding.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (transaction_id, model, dimensions, vector, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO UPDATE SET
			model = excluded.model,
			dimensions = excluded.dimensions,
			vector = excluded.vector,
			created_at = excluded.created_at
	`,
		embedding.TransactionID,
		embedding.Model,
		len(embedding.Vector),
		encodeVector(embedding.Vector),
		embedding.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save embedding: %w", err)
	}
	return nil
}

// GetEmbeddedTransactions returns every transaction of the user that has a vector.
func (s *SQLiteStorage) GetEmbeddedTransactions(ctx context.Context, userID string) ([]model.EmbeddedTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+joinedTransactionColumns+`, e.vector
		FROM transactions t
		JOIN embeddings e ON e.transaction_id = t.id
		WHERE t.user_id = ?
		ORDER BY t.occurred_at DESC, t.id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	embedded := []model.EmbeddedTransaction{}
	for rows.Next() {
		var blob []byte
		txn, err := scanTransaction(rows, &blob)
		if err != nil {
			return nil, err
		}
		vector, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", txn.ID, err)
		}
		embedded = append(embedded, model.EmbeddedTransaction{
			Transaction: *txn,
			Vector:      vector,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating embeddings: %w", err)
	}
	return embedded, nil
}

// GetTransactionsWithoutEmbedding lists transactions that still need a vector.
// An empty userID spans all users; limit <= 0 means no limit.
func (s *SQLiteStorage) GetTransactionsWithoutEmbedding(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + joinedTransactionColumns + `
		FROM transactions t
		LEFT JOIN embeddings e ON e.transaction_id = t.id
		WHERE e.transaction_id IS NULL AND (? = '' OR t.user_id = ?)
		ORDER BY t.occurred_at ASC, t.id ASC`
	args := []any{userID, userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query unembedded transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	transactions := []model.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unembedded transactions: %w", err)
	}
	return transactions, nil
}

// encodeVector packs float32 components little-endian.
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("%w: blob length %d is not a multiple of 4", ErrInvalidEmbedding, len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vector, nil
}
