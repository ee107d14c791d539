package prediction

import (
	"math"
	"sort"
	"time"

	"github.com/Veraticus/balance/internal/model"
)

// CategoryStats computes weekly spend statistics per category. The baseline covers
// buckets 1..weeks with missing weeks counted as zero; bucket 0 is the current week.
// Categories with no spend in the window are omitted. Results are sorted by category.
func CategoryStats(userID string, history []model.Transaction, asOf time.Time, weeks int) []model.CategorySpendingStat {
	if weeks < 1 {
		return []model.CategorySpendingStat{}
	}

	spend := make(map[string][]float64)
	for _, txn := range history {
		bucket := weekBucket(txn.Timestamp, asOf)
		if bucket < 0 || bucket > weeks {
			continue
		}
		key := categoryKey(txn.Category)
		if spend[key] == nil {
			spend[key] = make([]float64, weeks+1)
		}
		spend[key][bucket] += txn.Amount
	}

	stats := make([]model.CategorySpendingStat, 0, len(spend))
	for category, buckets := range spend {
		baseline := buckets[1:]
		mean, stddev := meanStdDev(baseline)

		stat := model.CategorySpendingStat{
			UserID:   userID,
			Category: category,
			Window:   weeks,
			Mean:     mean,
			StdDev:   stddev,
			Current:  buckets[0],
		}
		for _, v := range baseline {
			stat.Total += v
		}
		if stddev > 0 {
			stat.ZScore = (stat.Current - mean) / stddev
		}
		stats = append(stats, stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Category < stats[j].Category
	})
	return stats
}

// FindOverspending flags categories whose current week exceeds the baseline mean by
// more than threshold standard deviations. A flat baseline is never flagged.
// Alerts are sorted by z-score, highest first.
func FindOverspending(history []model.Transaction, asOf time.Time, weeks int, threshold float64) []model.OverspendingAlert {
	alerts := []model.OverspendingAlert{}
	for _, stat := range CategoryStats("", history, asOf, weeks) {
		if stat.StdDev <= 0 {
			continue
		}
		if stat.Current > stat.Mean+threshold*stat.StdDev {
			alerts = append(alerts, model.OverspendingAlert{
				Category:     stat.Category,
				ZScore:       stat.ZScore,
				CurrentSpend: stat.Current,
				MeanSpend:    stat.Mean,
			})
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].ZScore > alerts[j].ZScore
	})
	return alerts
}

// meanStdDev returns the mean and population standard deviation.
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}
