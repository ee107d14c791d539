package prediction

import (
	"math"
	"sort"

	"github.com/Veraticus/balance/internal/model"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths report ok=false; a zero-norm vector scores 0.
func CosineSimilarity(a, b []float32) (similarity float64, ok bool) {
	if len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, true
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}

// RankSimilar scores every candidate against query and returns the top limit,
// highest similarity first. Ties prefer the most recent purchase, then the lower ID.
func RankSimilar(query []float32, candidates []model.EmbeddedTransaction, limit int) []model.SimilarItem {
	items := make([]model.SimilarItem, 0, len(candidates))
	for _, c := range candidates {
		score, ok := CosineSimilarity(query, c.Vector)
		if !ok {
			continue
		}
		items = append(items, model.SimilarItem{
			TransactionID: c.ID,
			Merchant:      c.Merchant,
			ItemText:      c.EmbeddingText(),
			Timestamp:     c.Timestamp,
			Similarity:    score,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Similarity != items[j].Similarity {
			return items[i].Similarity > items[j].Similarity
		}
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.After(items[j].Timestamp)
		}
		return items[i].TransactionID < items[j].TransactionID
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
