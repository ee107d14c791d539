package prediction

import (
	"fmt"

	"github.com/Veraticus/balance/internal/model"
)

const noHistoryReasoning = "No transaction history available"

// PredictNextPurchase guesses the next purchase category from frequency.
// Ties go to the category seen first. Confidence is that category's share of purchases.
func PredictNextPurchase(history []model.Transaction) model.PurchasePrediction {
	if len(history) == 0 {
		return model.PurchasePrediction{
			Category:  "unknown",
			Reasoning: noHistoryReasoning,
		}
	}

	counts := make(map[string]int)
	sums := make(map[string]float64)
	var order []string
	for _, txn := range history {
		key := categoryKey(txn.Category)
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
		sums[key] += txn.Amount
	}

	best := order[0]
	for _, category := range order[1:] {
		if counts[category] > counts[best] {
			best = category
		}
	}

	count := counts[best]
	return model.PurchasePrediction{
		Category:   best,
		Amount:     sums[best] / float64(count),
		Confidence: float64(count) / float64(len(history)),
		Reasoning:  fmt.Sprintf("%d of %d purchases were %s", count, len(history), best),
	}
}
