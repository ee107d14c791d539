// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Strategy selects how the ensemble merges source opinions.
type Strategy string

// Strategy constants.
const (
	StrategyWeighted           Strategy = "weighted"
	StrategyConfidencePriority Strategy = "confidence_priority"
	StrategyConsensus          Strategy = "consensus"
)

// ParseStrategy converts a configuration value into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyWeighted, "":
		return StrategyWeighted, nil
	case StrategyConfidencePriority:
		return StrategyConfidencePriority, nil
	case StrategyConsensus:
		return StrategyConsensus, nil
	default:
		return "", fmt.Errorf("unknown ensemble strategy: %s", s)
	}
}

// SourceResult is one classifier's opinion about one transaction.
type SourceResult struct {
	Source     string  `json:"source"`
	Label      Label   `json:"label"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Confidence float64 `json:"confidence"`
	Weight     float64 `json:"weight"`
}

// EnsembleResult is the merged decision for a transaction.
type EnsembleResult struct {
	Label       Label          `json:"label"`
	Strategy    Strategy       `json:"strategy"`
	Sources     []SourceResult `json:"sources"`
	Confidence  float64        `json:"confidence"`
	NeedsReview bool           `json:"needs_review"`
}

// Classification is a transaction together with its ensemble decision.
type Classification struct {
	ClassifiedAt time.Time
	Transaction  Transaction
	Result       EnsembleResult
}

// LabeledTransaction pairs a transaction with its effective label.
type LabeledTransaction struct {
	Transaction
	Label Label
}
