package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		wantLabel      string
		wantConfidence float64
		wantAskUser    bool
		wantErr        bool
	}{
		{
			name:           "plain JSON",
			content:        `{"category": "want", "confidence": 0.85, "reason": "coffee is a treat", "ask_user": false}`,
			wantLabel:      "want",
			wantConfidence: 0.85,
		},
		{
			name:           "markdown fenced",
			content:        "```json\n{\"category\": \"need\", \"confidence\": 0.9}\n```",
			wantLabel:      "need",
			wantConfidence: 0.9,
		},
		{
			name:           "prose around object",
			content:        "Sure! Here you go: {\"category\": \"Essential\", \"confidence\": \"72%\"} Hope that helps.",
			wantLabel:      "need",
			wantConfidence: 0.72,
		},
		{
			name:           "percentage as number",
			content:        `{"category": "discretionary", "confidence": 64}`,
			wantLabel:      "want",
			wantConfidence: 0.64,
		},
		{
			name:           "slight overshoot is clamped",
			content:        `{"category": "want", "confidence": 1.2}`,
			wantLabel:      "want",
			wantConfidence: 1.0,
		},
		{
			name:           "above one hundred is clamped",
			content:        `{"category": "need", "confidence": 250}`,
			wantLabel:      "need",
			wantConfidence: 1.0,
		},
		{
			name:           "percent suffix below two",
			content:        `{"category": "need", "confidence": "1.5%"}`,
			wantLabel:      "need",
			wantConfidence: 0.015,
		},
		{
			name:           "asks the user",
			content:        `{"category": "want", "confidence": 0.4, "ask_user": true}`,
			wantLabel:      "want",
			wantConfidence: 0.4,
			wantAskUser:    true,
		},
		{name: "unknown label", content: `{"category": "luxury", "confidence": 0.9}`, wantErr: true},
		{name: "not JSON", content: "I think it's a want.", wantErr: true},
		{name: "bad confidence", content: `{"category": "want", "confidence": "high"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClassification(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
			assert.Equal(t, tt.wantAskUser, got.AskUser)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, extractJSON(`text {"a":{"b":2}} more`))
	assert.Equal(t, "nothing here", extractJSON("  nothing here "))
}
