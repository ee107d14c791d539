package prediction

import (
	"strings"
	"time"
)

const week = 7 * 24 * time.Hour

// weekBucket places ts into a 7-day bucket counted back from asOf.
// Bucket 0 is [asOf-7d, asOf). Timestamps at or after asOf return -1.
func weekBucket(ts, asOf time.Time) int {
	if !ts.Before(asOf) {
		return -1
	}
	return int(asOf.Sub(ts) / week)
}

// windowStart is the earliest instant covered by buckets 0..weeks.
func windowStart(asOf time.Time, weeks int) time.Time {
	return asOf.Add(-time.Duration(weeks+1) * week)
}

const uncategorized = "uncategorized"

func categoryKey(category string) string {
	key := strings.ToLower(strings.TrimSpace(category))
	if key == "" {
		return uncategorized
	}
	return key
}
