package source

import (
	"context"
	"fmt"

	"github.com/Veraticus/balance/internal/history"
	"github.com/Veraticus/balance/internal/model"
	"github.com/Veraticus/balance/internal/rules"
)

// Names of the built-in sources.
const (
	NameRule        = rules.SourceName
	NameHistory     = history.SourceName
	NameAI          = "ai"
	NameSecondaryAI = "secondary_ai"
)

// RuleSource adapts the rule classifier.
type RuleSource struct {
	classifier *rules.Classifier
}

// NewRuleSource creates a rule-backed source.
func NewRuleSource(classifier *rules.Classifier) *RuleSource {
	return &RuleSource{classifier: classifier}
}

// Name implements Source.
func (s *RuleSource) Name() string { return NameRule }

// Remote implements Source.
func (s *RuleSource) Remote() bool { return false }

// Invoke implements Source.
func (s *RuleSource) Invoke(_ context.Context, txn model.Transaction) (model.SourceResult, error) {
	return s.classifier.Classify(txn.Merchant, txn.Category, txn.Amount), nil
}

// HistorySource adapts the historical pattern matcher.
type HistorySource struct {
	matcher *history.Matcher
}

// NewHistorySource creates a history-backed source.
func NewHistorySource(matcher *history.Matcher) *HistorySource {
	return &HistorySource{matcher: matcher}
}

// Name implements Source.
func (s *HistorySource) Name() string { return NameHistory }

// Remote implements Source.
func (s *HistorySource) Remote() bool { return false }

// Invoke implements Source. Too little history yields ErrAbsent.
func (s *HistorySource) Invoke(ctx context.Context, txn model.Transaction) (model.SourceResult, error) {
	result, ok, err := s.matcher.Classify(ctx, txn.Merchant, txn.UserID)
	if err != nil {
		return model.SourceResult{}, err
	}
	if !ok {
		return model.SourceResult{}, ErrAbsent
	}
	return result, nil
}

// Judge produces a want/need opinion from a language model.
type Judge interface {
	Judge(ctx context.Context, txn model.Transaction) (model.SourceResult, error)
}

// AISource adapts a remote model. The primary and secondary AI sources differ only by name.
type AISource struct {
	judge Judge
	name  string
}

// NewAISource creates a remote AI source called name.
func NewAISource(name string, judge Judge) *AISource {
	return &AISource{name: name, judge: judge}
}

// Name implements Source.
func (s *AISource) Name() string { return s.name }

// Remote implements Source.
func (s *AISource) Remote() bool { return true }

// Invoke implements Source.
func (s *AISource) Invoke(ctx context.Context, txn model.Transaction) (model.SourceResult, error) {
	result, err := s.judge.Judge(ctx, txn)
	if err != nil {
		return model.SourceResult{}, fmt.Errorf("%s: %w", s.name, err)
	}
	return result, nil
}
