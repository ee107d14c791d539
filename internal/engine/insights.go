package engine

import (
	"context"

	"github.com/Veraticus/balance/internal/model"
)

// RecordCorrection appends a user's need/want verdict for a merchant.
// The historical source picks it up on the next classification.
func (c *Coach) RecordCorrection(ctx context.Context, userID, merchant string, label model.Label) error {
	_, err := c.learner.RecordCorrection(ctx, userID, merchant, label)
	return err
}

// FindOverspending flags categories with an anomalous current week.
func (c *Coach) FindOverspending(ctx context.Context, userID string, weeks int, threshold float64) ([]model.OverspendingAlert, error) {
	return c.predictor.FindOverspending(ctx, userID, weeks, threshold)
}

// CategoryStats returns per-category weekly spend statistics.
func (c *Coach) CategoryStats(ctx context.Context, userID string, weeks int) ([]model.CategorySpendingStat, error) {
	return c.predictor.CategoryStats(ctx, userID, weeks)
}

// FindCancellationCandidates lists recurring merchants that are mostly wants.
func (c *Coach) FindCancellationCandidates(ctx context.Context, userID string, minWeeks int) ([]model.CancellationCandidate, error) {
	return c.predictor.FindCancellationCandidates(ctx, userID, minWeeks)
}

// SearchSimilarItems finds past purchases resembling query.
func (c *Coach) SearchSimilarItems(ctx context.Context, query, userID string, limit int) ([]model.SimilarItem, error) {
	return c.predictor.SearchSimilarItems(ctx, query, userID, limit)
}

// PredictNextPurchase guesses the user's next purchase from frequency.
func (c *Coach) PredictNextPurchase(ctx context.Context, userID string) (model.PurchasePrediction, error) {
	return c.predictor.PredictNextPurchase(ctx, userID)
}
