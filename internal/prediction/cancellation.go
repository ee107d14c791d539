package prediction

import (
	"sort"
	"time"

	"github.com/Veraticus/balance/internal/model"
)

type merchantTally struct {
	merchant   string
	categories map[string]int
	weeks      map[int]struct{}
	need       int
	want       int
	total      float64
}

// FindCancellationCandidates flags recurring merchants whose labeled history is
// mostly discretionary. A merchant qualifies when it appears in at least minWeeks
// distinct weeks, its want ratio exceeds wantRatioThreshold and its total spend
// exceeds minTotalSpend. Candidates are sorted by total spend, highest first.
func FindCancellationCandidates(history []model.LabeledTransaction, asOf time.Time, minWeeks int, wantRatioThreshold, minTotalSpend float64) []model.CancellationCandidate {
	tallies := make(map[string]*merchantTally)
	for _, txn := range history {
		bucket := weekBucket(txn.Timestamp, asOf)
		if bucket < 0 {
			continue
		}

		key := model.MerchantKey(txn.Merchant)
		tally, ok := tallies[key]
		if !ok {
			tally = &merchantTally{
				merchant:   txn.Merchant,
				categories: make(map[string]int),
				weeks:      make(map[int]struct{}),
			}
			tallies[key] = tally
		}

		tally.weeks[bucket] = struct{}{}
		tally.categories[categoryKey(txn.Category)]++
		tally.total += txn.Amount
		switch txn.Label {
		case model.LabelNeed:
			tally.need++
		case model.LabelWant:
			tally.want++
		}
	}

	candidates := []model.CancellationCandidate{}
	for _, tally := range tallies {
		labeled := tally.need + tally.want
		if len(tally.weeks) < minWeeks || labeled == 0 {
			continue
		}

		ratio := float64(tally.want) / float64(labeled)
		if ratio <= wantRatioThreshold || tally.total <= minTotalSpend {
			continue
		}

		candidates = append(candidates, model.CancellationCandidate{
			Merchant:   tally.merchant,
			Category:   dominantCategory(tally.categories),
			WantRatio:  ratio,
			TotalSpend: tally.total,
			Weeks:      len(tally.weeks),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].TotalSpend != candidates[j].TotalSpend {
			return candidates[i].TotalSpend > candidates[j].TotalSpend
		}
		return model.MerchantKey(candidates[i].Merchant) < model.MerchantKey(candidates[j].Merchant)
	})
	return candidates
}

func dominantCategory(counts map[string]int) string {
	best, bestCount := "", 0
	for category, count := range counts {
		if count > bestCount || (count == bestCount && category < best) {
			best, bestCount = category, count
		}
	}
	return best
}
