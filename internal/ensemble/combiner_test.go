package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/model"
)

func src(name string, label model.Label, confidence, weight float64) model.SourceResult {
	return model.SourceResult{Source: name, Label: label, Confidence: confidence, Weight: weight}
}

func withStrategy(strategy model.Strategy) *Combiner {
	config := DefaultConfig()
	config.Strategy = strategy
	return NewCombiner(config)
}

func TestCombine_NoResults(t *testing.T) {
	for _, strategy := range []model.Strategy{model.StrategyWeighted, model.StrategyConfidencePriority, model.StrategyConsensus} {
		t.Run(string(strategy), func(t *testing.T) {
			_, err := withStrategy(strategy).Combine(nil)
			assert.ErrorIs(t, err, common.ErrClassificationUnavailable)
		})
	}
}

func TestCombine_AllAbstain(t *testing.T) {
	results := []model.SourceResult{
		src("rule", model.LabelUnknown, 0, 0.2),
		src("ai", model.LabelUnknown, 0.3, 0.5),
	}
	for _, strategy := range []model.Strategy{model.StrategyWeighted, model.StrategyConfidencePriority, model.StrategyConsensus} {
		t.Run(string(strategy), func(t *testing.T) {
			got, err := withStrategy(strategy).Combine(results)
			require.NoError(t, err)
			assert.Equal(t, model.LabelUnknown, got.Label)
			assert.Zero(t, got.Confidence)
			assert.True(t, got.NeedsReview)
			assert.Len(t, got.Sources, 2)
		})
	}
}

func TestCombine_Weighted(t *testing.T) {
	c := withStrategy(model.StrategyWeighted)

	tests := []struct {
		name           string
		results        []model.SourceResult
		wantLabel      model.Label
		wantConfidence float64
		wantReview     bool
	}{
		{
			name: "coffee purchase with history absent",
			results: []model.SourceResult{
				src("rule", model.LabelWant, 1.0, 0.2),
				src("ai", model.LabelWant, 0.85, 0.5),
			},
			wantLabel:      model.LabelWant,
			wantConfidence: 1.0,
		},
		{
			name: "history disagrees after corrections",
			results: []model.SourceResult{
				src("rule", model.LabelWant, 1.0, 0.2),
				src("ai", model.LabelWant, 0.85, 0.5),
				src("history", model.LabelNeed, 1.0, 0.3),
			},
			wantLabel:      model.LabelWant,
			wantConfidence: 0.7,
		},
		{
			name: "score tie resolves to need",
			results: []model.SourceResult{
				src("a", model.LabelWant, 0.9, 0.4),
				src("b", model.LabelNeed, 0.6, 0.4),
			},
			wantLabel:      model.LabelNeed,
			wantConfidence: 0.5,
			wantReview:     true,
		},
		{
			name: "abstainer weight stays in the total",
			results: []model.SourceResult{
				src("rule", model.LabelUnknown, 0, 0.2),
				src("ai", model.LabelWant, 0.85, 0.5),
			},
			wantLabel:      model.LabelWant,
			wantConfidence: 0.5 / 0.7,
		},
		{
			name: "abstainer pushes a thin majority into review",
			results: []model.SourceResult{
				src("rule", model.LabelUnknown, 0, 0.4),
				src("ai", model.LabelNeed, 0.8, 0.5),
				src("history", model.LabelWant, 1.0, 0.1),
			},
			wantLabel:      model.LabelNeed,
			wantConfidence: 0.5,
			wantReview:     true,
		},
		{
			name: "zero voting weight",
			results: []model.SourceResult{
				src("a", model.LabelNeed, 0.8, 0),
			},
			wantLabel:      model.LabelUnknown,
			wantConfidence: 0,
			wantReview:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Combine(tt.results)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
			assert.Equal(t, tt.wantReview, got.NeedsReview)
			assert.Equal(t, model.StrategyWeighted, got.Strategy)
			assert.Equal(t, tt.results, got.Sources)
		})
	}
}

func TestCombine_WeightedConfidenceGrowsWithAgreement(t *testing.T) {
	c := withStrategy(model.StrategyWeighted)
	base := []model.SourceResult{
		src("ai", model.LabelWant, 0.9, 0.5),
		src("history", model.LabelNeed, 0.9, 0.3),
	}

	before, err := c.Combine(base)
	require.NoError(t, err)

	after, err := c.Combine(append(base, src("rule", model.LabelWant, 1.0, 0.2)))
	require.NoError(t, err)

	assert.Equal(t, model.LabelWant, after.Label)
	assert.Greater(t, after.Confidence, before.Confidence)
}

func TestCombine_RemovingLoserNeverLowersConfidence(t *testing.T) {
	c := withStrategy(model.StrategyWeighted)
	full := []model.SourceResult{
		src("rule", model.LabelWant, 1.0, 0.2),
		src("ai", model.LabelWant, 0.85, 0.5),
		src("history", model.LabelNeed, 1.0, 0.3),
		src("secondary_ai", model.LabelNeed, 0.7, 0.1),
	}

	baseline, err := c.Combine(full)
	require.NoError(t, err)
	require.Equal(t, model.LabelWant, baseline.Label)

	for i, r := range full {
		if r.Label == baseline.Label {
			continue
		}
		reduced := append(append([]model.SourceResult{}, full[:i]...), full[i+1:]...)
		got, err := c.Combine(reduced)
		require.NoError(t, err)
		assert.Equal(t, baseline.Label, got.Label)
		assert.GreaterOrEqual(t, got.Confidence, baseline.Confidence, "removing %s", r.Source)
	}
}

func TestCombine_ConfidencePriority(t *testing.T) {
	c := withStrategy(model.StrategyConfidencePriority)

	tests := []struct {
		name           string
		results        []model.SourceResult
		wantLabel      model.Label
		wantConfidence float64
	}{
		{
			name: "single confident source decides",
			results: []model.SourceResult{
				src("rule", model.LabelNeed, 0.6, 0.2),
				src("ai", model.LabelWant, 0.95, 0.1),
				src("history", model.LabelNeed, 0.8, 0.7),
			},
			wantLabel:      model.LabelWant,
			wantConfidence: 0.95,
		},
		{
			name: "highest confidence wins among several",
			results: []model.SourceResult{
				src("rule", model.LabelNeed, 0.9, 0.2),
				src("ai", model.LabelWant, 0.97, 0.5),
			},
			wantLabel:      model.LabelWant,
			wantConfidence: 0.97,
		},
		{
			name: "equal confidence prefers heavier source",
			results: []model.SourceResult{
				src("rule", model.LabelWant, 1.0, 0.2),
				src("history", model.LabelNeed, 1.0, 0.3),
			},
			wantLabel:      model.LabelNeed,
			wantConfidence: 1.0,
		},
		{
			name: "full tie prefers need",
			results: []model.SourceResult{
				src("a", model.LabelWant, 0.9, 0.3),
				src("b", model.LabelNeed, 0.9, 0.3),
			},
			wantLabel:      model.LabelNeed,
			wantConfidence: 0.9,
		},
		{
			name: "threshold is exclusive so weighted voting applies",
			results: []model.SourceResult{
				src("ai", model.LabelWant, 0.85, 0.5),
				src("history", model.LabelNeed, 0.8, 0.3),
				src("rule", model.LabelNeed, 0.7, 0.2),
			},
			wantLabel:      model.LabelNeed,
			wantConfidence: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Combine(tt.results)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
		})
	}
}

func TestCombine_Consensus(t *testing.T) {
	c := withStrategy(model.StrategyConsensus)

	tests := []struct {
		name           string
		results        []model.SourceResult
		wantLabel      model.Label
		wantConfidence float64
		wantReview     bool
	}{
		{
			name: "two of three agree",
			results: []model.SourceResult{
				src("rule", model.LabelWant, 1.0, 0.2),
				src("ai", model.LabelWant, 0.7, 0.5),
				src("history", model.LabelNeed, 1.0, 0.3),
			},
			wantLabel:      model.LabelWant,
			wantConfidence: 2.0 / 3.0,
		},
		{
			name: "no agreement",
			results: []model.SourceResult{
				src("rule", model.LabelWant, 1.0, 0.2),
				src("ai", model.LabelNeed, 0.7, 0.5),
				src("history", model.LabelUnknown, 0, 0.3),
			},
			wantLabel:      model.LabelUnknown,
			wantConfidence: 0.5,
			wantReview:     true,
		},
		{
			name: "one each across three distinct labels",
			results: []model.SourceResult{
				src("rule", model.LabelWant, 1.0, 0.2),
				src("ai", model.LabelNeed, 0.7, 0.5),
				src("history", model.LabelUnknown, 0.4, 0.3),
			},
			wantLabel:      model.LabelUnknown,
			wantConfidence: 0.5,
			wantReview:     true,
		},
		{
			name: "tie at the threshold",
			results: []model.SourceResult{
				src("a", model.LabelWant, 1.0, 0.2),
				src("b", model.LabelWant, 0.7, 0.5),
				src("c", model.LabelNeed, 1.0, 0.3),
				src("d", model.LabelNeed, 0.9, 0.3),
			},
			wantLabel:      model.LabelUnknown,
			wantConfidence: 0.5,
			wantReview:     true,
		},
		{
			name: "unanimous",
			results: []model.SourceResult{
				src("a", model.LabelNeed, 1.0, 0.2),
				src("b", model.LabelNeed, 0.7, 0.5),
			},
			wantLabel:      model.LabelNeed,
			wantConfidence: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Combine(tt.results)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
			assert.Equal(t, tt.wantReview, got.NeedsReview)
		})
	}
}

func TestCombine_DoesNotAliasInput(t *testing.T) {
	results := []model.SourceResult{src("rule", model.LabelWant, 1.0, 0.2)}
	got, err := withStrategy(model.StrategyWeighted).Combine(results)
	require.NoError(t, err)

	results[0].Label = model.LabelNeed
	assert.Equal(t, model.LabelWant, got.Sources[0].Label)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown strategy", mutate: func(c *Config) { c.Strategy = "majority" }},
		{name: "high confidence above one", mutate: func(c *Config) { c.HighConfidence = 1.5 }},
		{name: "min agreement zero", mutate: func(c *Config) { c.MinAgreement = 0 }},
		{name: "negative review threshold", mutate: func(c *Config) { c.ReviewBelow = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			assert.Error(t, config.Validate())
		})
	}
}
