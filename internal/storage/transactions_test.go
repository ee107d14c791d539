package storage

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/model"
	"github.com/Veraticus/balance/internal/service"
)

func TestSQLiteStorage_SaveTransactions(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(*testing.T, *SQLiteStorage)
		transactions []model.Transaction
		wantInserted int
		wantErr      error
	}{
		{
			name:         "save new transactions",
			transactions: createTestTransactions("u1", 3),
			wantInserted: 3,
		},
		{
			name: "duplicates are skipped",
			setup: func(t *testing.T, s *SQLiteStorage) {
				t.Helper()
				_, err := s.SaveTransactions(context.Background(), createTestTransactions("u1", 2))
				require.NoError(t, err)
			},
			transactions: createTestTransactions("u1", 3),
			wantInserted: 1,
		},
		{
			name:         "empty slice",
			transactions: []model.Transaction{},
			wantErr:      ErrEmptySlice,
		},
		{
			name: "missing user",
			transactions: []model.Transaction{{
				ID: "t1", Merchant: "Shop", Amount: 5, Timestamp: time.Now(),
			}},
			wantErr: ErrInvalidTransaction,
		},
		{
			name: "non-finite amount",
			transactions: []model.Transaction{{
				ID: "t1", UserID: "u1", Merchant: "Shop", Amount: math.Inf(1), Timestamp: time.Now(),
			}},
			wantErr: ErrInvalidTransaction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := createTestStorage(t)
			if tt.setup != nil {
				tt.setup(t, store)
			}

			inserted, err := store.SaveTransactions(context.Background(), tt.transactions)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantInserted, inserted)
		})
	}
}

func TestSQLiteStorage_GetTransactionByID(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	txns := createTestTransactions("u1", 1)
	_, err := store.SaveTransactions(ctx, txns)
	require.NoError(t, err)

	got, err := store.GetTransactionByID(ctx, txns[0].ID)
	require.NoError(t, err)
	assert.Equal(t, txns[0].Merchant, got.Merchant)
	assert.Equal(t, txns[0].Amount, got.Amount)
	assert.True(t, txns[0].Timestamp.Equal(got.Timestamp))
	assert.Equal(t, time.UTC, got.Timestamp.Location())

	_, err = store.GetTransactionByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_TransactionExists(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	txns := createTestTransactions("u1", 1)
	exists, err := store.TransactionExists(ctx, txns[0].Hash)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.SaveTransactions(ctx, txns)
	require.NoError(t, err)

	exists, err = store.TransactionExists(ctx, txns[0].Hash)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSQLiteStorage_GetTransactions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.SaveTransactions(ctx, createTestTransactions("u1", 6))
	require.NoError(t, err)
	_, err = store.SaveTransactions(ctx, createTestTransactions("u2", 2))
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter service.TransactionFilter
		want   int
	}{
		{name: "all", filter: service.TransactionFilter{}, want: 8},
		{name: "by user", filter: service.TransactionFilter{UserID: "u1"}, want: 6},
		{name: "by merchant ignores case", filter: service.TransactionFilter{UserID: "u1", Merchant: "  MERCHANT 1 "}, want: 2},
		{name: "date window", filter: service.TransactionFilter{UserID: "u1", StartDate: &start, EndDate: &end}, want: 3},
		{name: "limit", filter: service.TransactionFilter{UserID: "u1", Limit: 4}, want: 4},
		{name: "limit and offset", filter: service.TransactionFilter{UserID: "u1", Limit: 4, Offset: 4}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.GetTransactions(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			for i := 1; i < len(got); i++ {
				assert.False(t, got[i].Timestamp.Before(got[i-1].Timestamp), "results should be oldest first")
			}
		})
	}
}
