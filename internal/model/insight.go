package model

import "time"

// CategorySpendingStat summarizes weekly spend for one category.
// It is always recomputed from the transaction log.
type CategorySpendingStat struct {
	UserID   string
	Category string
	Window   int // Number of trailing weeks in the baseline
	Mean     float64
	StdDev   float64
	Total    float64
	Current  float64
	ZScore   float64
}

// OverspendingAlert flags a category whose current week is anomalous.
type OverspendingAlert struct {
	Category     string  `json:"category"`
	ZScore       float64 `json:"z_score"`
	CurrentSpend float64 `json:"current_spend"`
	MeanSpend    float64 `json:"mean_spend"`
}

// CancellationCandidate is a recurring merchant that is mostly discretionary.
type CancellationCandidate struct {
	Merchant   string  `json:"merchant"`
	Category   string  `json:"category"`
	WantRatio  float64 `json:"want_ratio"`
	TotalSpend float64 `json:"total_spend"`
	Weeks      int     `json:"weeks"`
}

// SimilarItem is one hit from a similarity search.
type SimilarItem struct {
	Timestamp     time.Time `json:"timestamp"`
	TransactionID string    `json:"transaction_id"`
	Merchant      string    `json:"merchant"`
	ItemText      string    `json:"item_text"`
	Similarity    float64   `json:"similarity_score"`
}

// PurchasePrediction is a guess at the user's next purchase.
type PurchasePrediction struct {
	Category   string  `json:"predicted_category"`
	Reasoning  string  `json:"reasoning"`
	Amount     float64 `json:"predicted_amount"`
	Confidence float64 `json:"confidence"`
}

// Embedding is the vector attached to a transaction's item text.
type Embedding struct {
	CreatedAt     time.Time
	TransactionID string
	Model         string
	Vector        []float32
}

// EmbeddedTransaction is a transaction joined with its stored vector.
type EmbeddedTransaction struct {
	Transaction
	Vector []float32
}
