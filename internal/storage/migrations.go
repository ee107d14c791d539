package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					hash TEXT UNIQUE NOT NULL,
					user_id TEXT NOT NULL,
					merchant TEXT NOT NULL,
					merchant_key TEXT NOT NULL,
					amount REAL NOT NULL,
					category TEXT NOT NULL DEFAULT '',
					item_text TEXT NOT NULL DEFAULT '',
					occurred_at DATETIME NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_user_time ON transactions(user_id, occurred_at)`,
				`CREATE INDEX idx_transactions_user_merchant ON transactions(user_id, merchant_key)`,

				`CREATE TABLE IF NOT EXISTS classifications (
					transaction_id TEXT PRIMARY KEY,
					label TEXT NOT NULL CHECK (label IN ('need', 'want', 'unknown')),
					confidence REAL NOT NULL DEFAULT 0,
					strategy TEXT NOT NULL,
					needs_review INTEGER NOT NULL DEFAULT 0,
					sources TEXT NOT NULL DEFAULT '[]',
					classified_at DATETIME NOT NULL,
					FOREIGN KEY (transaction_id) REFERENCES transactions(id)
				)`,
				`CREATE INDEX idx_classifications_label ON classifications(label)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Add append-only user label log",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS user_labels (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					merchant TEXT NOT NULL,
					merchant_key TEXT NOT NULL,
					label TEXT NOT NULL CHECK (label IN ('need', 'want')),
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_user_labels_lookup ON user_labels(user_id, merchant_key)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Add transaction embeddings",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS embeddings (
					transaction_id TEXT PRIMARY KEY,
					model TEXT NOT NULL,
					dimensions INTEGER NOT NULL,
					vector BLOB NOT NULL,
					created_at DATETIME NOT NULL,
					FOREIGN KEY (transaction_id) REFERENCES transactions(id)
				)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// SchemaVersion reports the version recorded in the database header.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate runs all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
