package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/balance/internal/model"
)

// AppendUserLabel adds an entry to the label log. Entries are never updated.
func (s *SQLiteStorage) AppendUserLabel(ctx context.Context, label *model.UserLabel) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUserLabel(label); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_labels (id, user_id, merchant, merchant_key, label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		label.ID,
		label.UserID,
		label.Merchant,
		model.MerchantKey(label.Merchant),
		string(label.Label),
		label.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append user label: %w", err)
	}
	return nil
}

// GetUserLabels returns every label a user recorded for a merchant, oldest first.
// Merchants compare case-insensitively.
func (s *SQLiteStorage) GetUserLabels(ctx context.Context, userID, merchant string) ([]model.UserLabel, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return nil, err
	}

	return s.queryUserLabels(ctx, `
		SELECT id, user_id, merchant, label, created_at
		FROM user_labels
		WHERE user_id = ? AND merchant_key = ?
		ORDER BY created_at ASC, rowid ASC
	`, userID, model.MerchantKey(merchant))
}

// ListUserLabels returns a user's whole label log across merchants, oldest first.
func (s *SQLiteStorage) ListUserLabels(ctx context.Context, userID string) ([]model.UserLabel, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	return s.queryUserLabels(ctx, `
		SELECT id, user_id, merchant, label, created_at
		FROM user_labels
		WHERE user_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, userID)
}

func (s *SQLiteStorage) queryUserLabels(ctx context.Context, query string, args ...any) ([]model.UserLabel, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	labels := []model.UserLabel{}
	for rows.Next() {
		var (
			entry     model.UserLabel
			label     string
			createdAt time.Time
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Merchant, &label, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan user label: %w", err)
		}
		entry.Label = model.Label(label)
		entry.Timestamp = createdAt.UTC()
		labels = append(labels, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user labels: %w", err)
	}
	return labels, nil
}
