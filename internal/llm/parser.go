package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/balance/internal/model"
)

// judgment is the JSON object the models are asked to return.
type judgment struct {
	Label      string     `json:"category"`
	Reason     string     `json:"reason"`
	Confidence confidence `json:"confidence"`
	AskUser    bool       `json:"ask_user"`
}

// confidence accepts 0.85, "0.85", 85 or "85%". A bare number between 2 and 100
// is read as a percentage; anything else outside [0,1] is clamped, so a model
// overshooting with 1.2 means full confidence.
type confidence float64

// minBarePercent is the smallest bare number treated as a percentage.
const minBarePercent = 2

func (c *confidence) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}

	percent := strings.HasSuffix(raw, "%")
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid confidence %s: %w", string(data), err)
	}
	if percent || (value >= minBarePercent && value <= 100) {
		value /= 100
	}
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}

	*c = confidence(value)
	return nil
}

// parseClassification extracts the judgment from raw model output.
func parseClassification(content string) (ClassificationResponse, error) {
	var resp judgment
	if err := json.Unmarshal([]byte(extractJSON(content)), &resp); err != nil {
		return ClassificationResponse{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	label, err := model.ParseLabel(resp.Label)
	if err != nil {
		return ClassificationResponse{}, fmt.Errorf("model returned %w", err)
	}

	return ClassificationResponse{
		Label:      string(label),
		Confidence: float64(resp.Confidence),
		Reasoning:  resp.Reason,
		AskUser:    resp.AskUser,
	}, nil
}

// extractJSON strips markdown fences and any prose around the first JSON object.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return strings.TrimSpace(s)
}
