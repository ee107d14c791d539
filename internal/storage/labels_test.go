package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/balance/internal/model"
)

func TestSQLiteStorage_UserLabels(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	entries := []model.UserLabel{
		{ID: "l1", UserID: "u1", Merchant: "Starbucks", Label: model.LabelNeed, Timestamp: base},
		{ID: "l2", UserID: "u1", Merchant: "STARBUCKS ", Label: model.LabelWant, Timestamp: base.Add(time.Minute)},
		{ID: "l3", UserID: "u1", Merchant: "Netflix", Label: model.LabelWant, Timestamp: base},
		{ID: "l4", UserID: "u2", Merchant: "Starbucks", Label: model.LabelWant, Timestamp: base},
	}
	for i := range entries {
		require.NoError(t, store.AppendUserLabel(ctx, &entries[i]))
	}

	got, err := store.GetUserLabels(ctx, "u1", "starbucks")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "l1", got[0].ID)
	assert.Equal(t, model.LabelNeed, got[0].Label)
	assert.Equal(t, "l2", got[1].ID)

	got, err = store.GetUserLabels(ctx, "u1", "Unknown Cafe")
	require.NoError(t, err)
	assert.Empty(t, got)

	all, err := store.ListUserLabels(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "l1", all[0].ID)
	assert.Equal(t, "l2", all[2].ID)

	_, err = store.ListUserLabels(ctx, " ")
	assert.Error(t, err)
}

func TestSQLiteStorage_AppendUserLabelValidation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	tests := []struct {
		name  string
		label *model.UserLabel
	}{
		{name: "unknown label", label: &model.UserLabel{ID: "a", UserID: "u", Merchant: "m", Label: model.LabelUnknown, Timestamp: now}},
		{name: "missing merchant", label: &model.UserLabel{ID: "a", UserID: "u", Label: model.LabelNeed, Timestamp: now}},
		{name: "missing user", label: &model.UserLabel{ID: "a", Merchant: "m", Label: model.LabelNeed, Timestamp: now}},
		{name: "missing timestamp", label: &model.UserLabel{ID: "a", UserID: "u", Merchant: "m", Label: model.LabelNeed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, store.AppendUserLabel(ctx, tt.label), ErrInvalidUserLabel)
		})
	}
}
