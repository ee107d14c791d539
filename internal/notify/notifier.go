// Package notify delivers review prompts to users.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/balance/internal/model"
)

// LogNotifier writes notifications to a structured logger.
// It stands in for push or chat delivery, which live outside this module.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs at Info.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements service.Notifier.
func (n *LogNotifier) Notify(ctx context.Context, userID, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return errors.New("notification requires a user ID")
	}
	n.logger.InfoContext(ctx, "notification", "user_id", userID, "message", message)
	return nil
}

// ReviewPrompt asks the user to settle a low-confidence classification.
func ReviewPrompt(txn model.Transaction, result model.EnsembleResult) string {
	if result.Label.IsDecisive() {
		return fmt.Sprintf("Was your $%.2f purchase at %s a %s? Reply need or want.",
			txn.Amount, txn.Merchant, result.Label)
	}
	return fmt.Sprintf("Was your $%.2f purchase at %s a need or a want?", txn.Amount, txn.Merchant)
}
