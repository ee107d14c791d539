// Package rules implements the deterministic want/need classifier driven by
// category tables and per-category amount thresholds.
package rules

import (
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/balance/internal/model"
)

// SourceName identifies results produced by this classifier.
const SourceName = "rule"

// Table holds the category lists and thresholds the classifier consults.
type Table struct {
	Thresholds map[string]float64 `mapstructure:"thresholds"`
	AlwaysNeed []string           `mapstructure:"always_need"`
	AlwaysWant []string           `mapstructure:"always_want"`
}

// DefaultTable returns the built-in category table.
func DefaultTable() Table {
	return Table{
		AlwaysNeed: []string{"groceries", "utilities", "rent", "healthcare", "insurance", "pharmacy", "transportation"},
		AlwaysWant: []string{"coffee", "entertainment", "alcohol", "gaming"},
		Thresholds: map[string]float64{
			"dining":   50,
			"shopping": 75,
		},
	}
}

// Validate checks that every threshold is positive.
func (t Table) Validate() error {
	for category, threshold := range t.Thresholds {
		if threshold <= 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
			return fmt.Errorf("threshold for %q must be positive, got %v", category, threshold)
		}
	}
	return nil
}

// Classifier labels transactions from a Table. It holds no mutable state.
type Classifier struct {
	need       map[string]struct{}
	want       map[string]struct{}
	thresholds map[string]float64
}

// NewClassifier builds a classifier with lower-cased lookups over table.
func NewClassifier(table Table) *Classifier {
	c := &Classifier{
		need:       make(map[string]struct{}, len(table.AlwaysNeed)),
		want:       make(map[string]struct{}, len(table.AlwaysWant)),
		thresholds: make(map[string]float64, len(table.Thresholds)),
	}
	for _, category := range table.AlwaysNeed {
		c.need[normalizeCategory(category)] = struct{}{}
	}
	for _, category := range table.AlwaysWant {
		c.want[normalizeCategory(category)] = struct{}{}
	}
	for category, threshold := range table.Thresholds {
		c.thresholds[normalizeCategory(category)] = threshold
	}
	return c
}

// Classify labels a purchase. The merchant is accepted for signature symmetry with
// other sources but the table is keyed by category only.
func (c *Classifier) Classify(_ string, category string, amount float64) model.SourceResult {
	key := normalizeCategory(category)
	result := model.SourceResult{Source: SourceName}

	if _, ok := c.need[key]; ok {
		result.Label = model.LabelNeed
		result.Confidence = 1.0
		result.Reasoning = fmt.Sprintf("%s is always a need", key)
		return result
	}

	if _, ok := c.want[key]; ok {
		result.Label = model.LabelWant
		result.Confidence = 1.0
		result.Reasoning = fmt.Sprintf("%s is always a want", key)
		return result
	}

	if threshold, ok := c.thresholds[key]; ok {
		if amount > threshold {
			result.Label = model.LabelWant
			result.Reasoning = fmt.Sprintf("%.2f exceeds the %s threshold of %.2f", amount, key, threshold)
		} else {
			result.Label = model.LabelNeed
			result.Reasoning = fmt.Sprintf("%.2f is within the %s threshold of %.2f", amount, key, threshold)
		}
		result.Confidence = thresholdConfidence(amount, threshold)
		return result
	}

	result.Label = model.LabelUnknown
	result.Confidence = 0.0
	result.Reasoning = "no rule for category"
	return result
}

// thresholdConfidence grows linearly with the distance from the threshold,
// starting at 0.5 on the threshold and reaching 1.0 one threshold away.
func thresholdConfidence(amount, threshold float64) float64 {
	confidence := 0.5 + 0.5*math.Abs(amount-threshold)/threshold
	return math.Max(0.5, math.Min(1.0, confidence))
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
