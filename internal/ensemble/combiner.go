// Package ensemble merges independent source opinions into one want/need decision.
//
// Sources that return LabelUnknown abstain: they cast no vote, but they did
// respond, so under weighted voting their weight still counts towards the
// total. Every confidence the combiner reports is a pure function of the
// source results and the Config.
package ensemble

import (
	"fmt"
	"math"

	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/model"
)

// Config selects and tunes the merge strategy.
type Config struct {
	Strategy       model.Strategy `mapstructure:"strategy"`
	HighConfidence float64        `mapstructure:"high_confidence"`
	MinAgreement   int            `mapstructure:"min_agreement"`
	// ReviewBelow flags decisions whose confidence falls under it for user review.
	ReviewBelow float64 `mapstructure:"review_below"`
}

// DefaultConfig returns weighted voting with the standard thresholds.
func DefaultConfig() Config {
	return Config{
		Strategy:       model.StrategyWeighted,
		HighConfidence: 0.85,
		MinAgreement:   2,
		ReviewBelow:    0.6,
	}
}

// Validate checks the combiner settings.
func (c Config) Validate() error {
	if _, err := model.ParseStrategy(string(c.Strategy)); err != nil {
		return err
	}
	if c.HighConfidence < 0 || c.HighConfidence > 1 {
		return fmt.Errorf("ensemble high_confidence must be within [0,1], got %v", c.HighConfidence)
	}
	if c.MinAgreement < 1 {
		return fmt.Errorf("ensemble min_agreement must be at least 1, got %d", c.MinAgreement)
	}
	if c.ReviewBelow < 0 || c.ReviewBelow > 1 {
		return fmt.Errorf("ensemble review_below must be within [0,1], got %v", c.ReviewBelow)
	}
	return nil
}

// consensusFallbackConfidence is reported when consensus cannot be reached.
const consensusFallbackConfidence = 0.5

// Combiner is a pure reduction over source results.
type Combiner struct {
	config Config
}

// NewCombiner creates a combiner for config.
func NewCombiner(config Config) *Combiner {
	if config.Strategy == "" {
		config.Strategy = model.StrategyWeighted
	}
	return &Combiner{config: config}
}

// Strategy reports the configured strategy.
func (c *Combiner) Strategy() model.Strategy {
	return c.config.Strategy
}

// Combine merges results, which must be in configured source order.
// It returns common.ErrClassificationUnavailable when results is empty.
func (c *Combiner) Combine(results []model.SourceResult) (model.EnsembleResult, error) {
	if len(results) == 0 {
		return model.EnsembleResult{}, common.ErrClassificationUnavailable
	}

	sources := make([]model.SourceResult, len(results))
	copy(sources, results)

	out := model.EnsembleResult{
		Strategy: c.config.Strategy,
		Sources:  sources,
	}

	voters := votingResults(sources)
	if len(voters) == 0 {
		out.Label = model.LabelUnknown
		out.Confidence = 0
		out.NeedsReview = true
		return out, nil
	}

	switch c.config.Strategy {
	case model.StrategyConfidencePriority:
		out.Label, out.Confidence, out.NeedsReview = c.confidencePriority(voters, sources)
	case model.StrategyConsensus:
		out.Label, out.Confidence, out.NeedsReview = c.consensus(voters)
	case model.StrategyWeighted:
		out.Label, out.Confidence, out.NeedsReview = weightedVote(voters, sources)
	default:
		return model.EnsembleResult{}, fmt.Errorf("%w: unknown strategy %q", common.ErrInvalidConfig, c.config.Strategy)
	}

	if out.Confidence < c.config.ReviewBelow {
		out.NeedsReview = true
	}
	return out, nil
}

func votingResults(results []model.SourceResult) []model.SourceResult {
	voters := make([]model.SourceResult, 0, len(results))
	for _, r := range results {
		if r.Label.IsDecisive() {
			voters = append(voters, r)
		}
	}
	return voters
}

// weightedVote sums voter weights per label and divides the winner's score by
// the weight of every source that responded. Ties resolve to need.
func weightedVote(voters, responded []model.SourceResult) (model.Label, float64, bool) {
	var needScore, wantScore float64
	for _, r := range voters {
		if r.Label == model.LabelWant {
			wantScore += r.Weight
		} else {
			needScore += r.Weight
		}
	}

	var total float64
	for _, r := range responded {
		total += r.Weight
	}
	if needScore+wantScore <= 0 || total <= 0 {
		return model.LabelUnknown, 0, true
	}

	if wantScore > needScore {
		return model.LabelWant, wantScore / total, false
	}
	return model.LabelNeed, needScore / total, false
}

// confidencePriority lets a single sufficiently sure source decide.
func (c *Combiner) confidencePriority(voters, responded []model.SourceResult) (model.Label, float64, bool) {
	var best *model.SourceResult
	for i := range voters {
		r := &voters[i]
		if r.Confidence <= c.config.HighConfidence {
			continue
		}
		if best == nil || outranks(r, best) {
			best = r
		}
	}

	if best == nil {
		return weightedVote(voters, responded)
	}
	return best.Label, math.Min(1.0, best.Confidence), false
}

func outranks(a, b *model.SourceResult) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	return a.Label == model.LabelNeed && b.Label != model.LabelNeed
}

// consensus requires MinAgreement votes for one label.
func (c *Combiner) consensus(voters []model.SourceResult) (model.Label, float64, bool) {
	var need, want int
	for _, r := range voters {
		if r.Label == model.LabelWant {
			want++
		} else {
			need++
		}
	}

	minAgreement := c.config.MinAgreement
	if minAgreement < 1 {
		minAgreement = 1
	}

	needOK := need >= minAgreement
	wantOK := want >= minAgreement
	total := float64(need + want)

	switch {
	case needOK && wantOK && need == want:
		return model.LabelUnknown, consensusFallbackConfidence, true
	case wantOK && want > need:
		return model.LabelWant, float64(want) / total, false
	case needOK && need >= want:
		return model.LabelNeed, float64(need) / total, false
	default:
		return model.LabelUnknown, consensusFallbackConfidence, true
	}
}
