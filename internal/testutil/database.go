// Package testutil provides shared database fixtures for tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/balance/internal/model"
	"github.com/Veraticus/balance/internal/service"
	"github.com/Veraticus/balance/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database that is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.SeedCorrections("user1", "Starbucks", model.LabelNeed, 3)
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.Storage) error
	Transactions   []model.Transaction
	Labels         []model.UserLabel
	SkipMigrations bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	if len(opts.Transactions) > 0 {
		if _, err := store.SaveTransactions(ctx, opts.Transactions); err != nil {
			t.Fatalf("failed to seed transactions: %v", err)
		}
	}

	for i := range opts.Labels {
		if err := store.AppendUserLabel(ctx, &opts.Labels[i]); err != nil {
			t.Fatalf("failed to seed label %q: %v", opts.Labels[i].ID, err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// SeedCorrections appends count identical user labels for a merchant.
func (db *TestDB) SeedCorrections(userID, merchant string, label model.Label, count int) {
	db.t.Helper()

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := range count {
		entry := &model.UserLabel{
			ID:        fmt.Sprintf("%s-%s-%d", userID, model.MerchantKey(merchant), i),
			UserID:    userID,
			Merchant:  merchant,
			Label:     label,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Storage.AppendUserLabel(context.Background(), entry); err != nil {
			db.t.Fatalf("failed to seed correction: %v", err)
		}
	}
}

// Transaction builds a hashed transaction for tests.
func Transaction(id, userID, merchant, category string, amount float64, ts time.Time) model.Transaction {
	txn := model.Transaction{
		ID:        id,
		UserID:    userID,
		Merchant:  merchant,
		Category:  category,
		Amount:    amount,
		Timestamp: ts.UTC(),
	}
	txn.Hash = txn.GenerateHash()
	return txn
}
