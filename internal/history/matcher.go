// Package history classifies purchases from the user's own label log.
package history

import (
	"context"
	"fmt"
	"math"

	"github.com/Veraticus/balance/internal/model"
)

// SourceName identifies results produced by the matcher.
const SourceName = "history"

// LabelReader is the read side of the label log.
type LabelReader interface {
	GetUserLabels(ctx context.Context, userID, merchant string) ([]model.UserLabel, error)
}

// Config tunes the matcher.
type Config struct {
	MinSamples           int     `mapstructure:"min_samples"`
	PersonalizationBoost float64 `mapstructure:"personalization_boost"`
}

// DefaultConfig returns the standard matcher settings.
func DefaultConfig() Config {
	return Config{
		MinSamples:           3,
		PersonalizationBoost: 1.2,
	}
}

// Validate checks the matcher settings.
func (c Config) Validate() error {
	if c.MinSamples < 1 {
		return fmt.Errorf("history min_samples must be at least 1, got %d", c.MinSamples)
	}
	if c.PersonalizationBoost <= 0 {
		return fmt.Errorf("history personalization_boost must be positive, got %v", c.PersonalizationBoost)
	}
	return nil
}

// Matcher derives a label from prior confirmations for the same merchant.
type Matcher struct {
	labels LabelReader
	config Config
}

// NewMatcher creates a matcher reading from labels.
func NewMatcher(labels LabelReader, config Config) *Matcher {
	return &Matcher{labels: labels, config: config}
}

// Classify returns the user's majority label for merchant. ok is false when there
// are fewer than MinSamples entries, meaning the matcher has no opinion.
func (m *Matcher) Classify(ctx context.Context, merchant, userID string) (result model.SourceResult, ok bool, err error) {
	labels, err := m.labels.GetUserLabels(ctx, userID, merchant)
	if err != nil {
		return model.SourceResult{}, false, fmt.Errorf("failed to read label history: %w", err)
	}

	result, ok = Summarize(labels, m.config)
	return result, ok, nil
}

// Summarize reduces a label history to a single opinion.
// Ties between need and want resolve to need.
func Summarize(labels []model.UserLabel, config Config) (model.SourceResult, bool) {
	var need, want int
	for _, entry := range labels {
		switch entry.Label {
		case model.LabelNeed:
			need++
		case model.LabelWant:
			want++
		}
	}

	total := need + want
	if total == 0 || total < config.MinSamples {
		return model.SourceResult{}, false
	}

	label, agreeing := model.LabelNeed, need
	if want > need {
		label, agreeing = model.LabelWant, want
	}

	confidence := float64(agreeing) / float64(total) * config.PersonalizationBoost
	return model.SourceResult{
		Source:     SourceName,
		Label:      label,
		Confidence: math.Min(1.0, confidence),
		Reasoning:  fmt.Sprintf("%d of %d past labels for this merchant were %s", agreeing, total, label),
	}, true
}
