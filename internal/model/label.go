package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidLabel indicates a label outside the need/want/unknown set.
var ErrInvalidLabel = errors.New("invalid label")

// Label is the want/need verdict attached to a purchase.
type Label string

// Label constants.
const (
	LabelNeed    Label = "need"
	LabelWant    Label = "want"
	LabelUnknown Label = "unknown"
)

// ParseLabel converts user or model supplied text into a Label.
func ParseLabel(s string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "need", "essential":
		return LabelNeed, nil
	case "want", "discretionary":
		return LabelWant, nil
	case "unknown", "":
		return LabelUnknown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
}

// IsDecisive reports whether the label expresses an actual opinion.
func (l Label) IsDecisive() bool {
	return l == LabelNeed || l == LabelWant
}

// UserLabel is one confirmed or corrected label in a user's append-only history.
type UserLabel struct {
	Timestamp time.Time
	ID        string
	UserID    string
	Merchant  string
	Label     Label
}
