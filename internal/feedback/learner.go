// Package feedback records user corrections into the append-only label log.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/model"
)

// LabelWriter is the write side of the label log.
type LabelWriter interface {
	AppendUserLabel(ctx context.Context, label *model.UserLabel) error
}

// Learner validates corrections and appends them to the log.
type Learner struct {
	labels LabelWriter
	now    func() time.Time
	logger *slog.Logger
}

// NewLearner creates a learner. A nil clock defaults to time.Now.
func NewLearner(labels LabelWriter, now func() time.Time, logger *slog.Logger) *Learner {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Learner{labels: labels, now: now, logger: logger}
}

// RecordCorrection appends a confirmed need or want label for a merchant.
// Prior entries are never modified; the historical matcher sees the new entry
// on its next read.
func (l *Learner) RecordCorrection(ctx context.Context, userID, merchant string, label model.Label) (*model.UserLabel, error) {
	userID = strings.TrimSpace(userID)
	merchant = strings.TrimSpace(merchant)

	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", common.ErrInvalidTransaction)
	}
	if merchant == "" {
		return nil, fmt.Errorf("%w: merchant is required", common.ErrInvalidTransaction)
	}
	if !label.IsDecisive() {
		return nil, fmt.Errorf("%w: correction must be need or want, got %q", common.ErrInvalidLabel, label)
	}

	entry := &model.UserLabel{
		ID:        uuid.NewString(),
		UserID:    userID,
		Merchant:  merchant,
		Label:     label,
		Timestamp: l.now().UTC(),
	}

	if err := l.labels.AppendUserLabel(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record correction: %w", err)
	}

	l.logger.Info("Recorded correction",
		"user_id", userID,
		"merchant", merchant,
		"label", label)
	return entry, nil
}
