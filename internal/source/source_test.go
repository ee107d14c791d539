package source

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/history"
	"github.com/Veraticus/balance/internal/model"
	"github.com/Veraticus/balance/internal/rules"
)

// fakeSource answers after delay. With ignoreCtx set it keeps sleeping past cancellation.
type fakeSource struct {
	err       error
	name      string
	result    model.SourceResult
	failFirst int32
	delay     time.Duration
	calls     atomic.Int32
	remote    bool
	ignoreCtx bool
}

func (f *fakeSource) Name() string { return f.name }
func (f *fakeSource) Remote() bool { return f.remote }

func (f *fakeSource) Invoke(ctx context.Context, _ model.Transaction) (model.SourceResult, error) {
	call := f.calls.Add(1)
	if f.delay > 0 {
		if f.ignoreCtx {
			time.Sleep(f.delay)
		} else {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return model.SourceResult{}, ctx.Err()
			}
		}
	}
	if call <= f.failFirst {
		return model.SourceResult{}, errors.New("transient failure")
	}
	return f.result, f.err
}

func testTxn() model.Transaction {
	return model.Transaction{ID: "t1", UserID: "u1", Merchant: "Starbucks", Category: "coffee", Amount: 5.25, Timestamp: time.Now()}
}

func TestAdapter_StampsNameAndWeight(t *testing.T) {
	src := &fakeSource{name: "ai", result: model.SourceResult{Label: model.LabelWant, Confidence: 1.4}}
	a := NewAdapter(src, AdapterConfig{Weight: 0.5, Retries: -1})

	got, err := a.Invoke(context.Background(), testTxn())
	require.NoError(t, err)
	assert.Equal(t, "ai", got.Source)
	assert.InDelta(t, 0.5, got.Weight, 1e-9)
	assert.InDelta(t, 1.0, got.Confidence, 1e-9, "confidence is clamped")
}

func TestAdapter_RejectsUnknownLabel(t *testing.T) {
	src := &fakeSource{name: "ai", result: model.SourceResult{Label: "maybe"}}
	_, err := NewAdapter(src, AdapterConfig{Retries: 0}).Invoke(context.Background(), testTxn())
	assert.ErrorIs(t, err, model.ErrInvalidLabel)
}

func TestAdapter_Retry(t *testing.T) {
	tests := []struct {
		name      string
		remote    bool
		failFirst int32
		wantErr   bool
		wantCalls int32
	}{
		{name: "remote recovers on retry", remote: true, failFirst: 1, wantCalls: 2},
		{name: "remote gives up after one retry", remote: true, failFirst: 5, wantErr: true, wantCalls: 2},
		{name: "local never retries", remote: false, failFirst: 1, wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{
				name:      "s",
				remote:    tt.remote,
				failFirst: tt.failFirst,
				result:    model.SourceResult{Label: model.LabelNeed, Confidence: 0.9},
			}
			_, err := NewAdapter(src, AdapterConfig{Weight: 1, Retries: -1}).Invoke(context.Background(), testTxn())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, src.calls.Load())
		})
	}
}

func TestAdapter_AbsentIsNotRetried(t *testing.T) {
	src := &fakeSource{name: "history", remote: true, err: ErrAbsent}
	_, err := NewAdapter(src, AdapterConfig{Retries: -1}).Invoke(context.Background(), testTxn())
	assert.ErrorIs(t, err, ErrAbsent)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestAdapter_TimeoutAbandonsUncooperativeSource(t *testing.T) {
	src := &fakeSource{name: "slow", delay: 500 * time.Millisecond, ignoreCtx: true}
	a := NewAdapter(src, AdapterConfig{Timeout: 20 * time.Millisecond, Retries: 0})

	start := time.Now()
	_, err := a.Invoke(context.Background(), testTxn())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestDispatcher_Collect(t *testing.T) {
	fast := &fakeSource{name: "rule", result: model.SourceResult{Label: model.LabelWant, Confidence: 1}}
	absent := &fakeSource{name: "history", err: ErrAbsent}
	broken := &fakeSource{name: "secondary_ai", err: errors.New("boom")}
	slow := &fakeSource{name: "ai", delay: time.Second, ignoreCtx: true, result: model.SourceResult{Label: model.LabelNeed, Confidence: 1}}

	d := NewDispatcher(100*time.Millisecond, common.DiscardLogger(),
		NewAdapter(slow, AdapterConfig{Weight: 0.5, Timeout: 5 * time.Second, Retries: 0}),
		NewAdapter(fast, AdapterConfig{Weight: 0.2, Retries: -1}),
		NewAdapter(absent, AdapterConfig{Weight: 0.3, Retries: -1}),
		NewAdapter(broken, AdapterConfig{Weight: 0.3, Retries: 0}),
	)
	assert.Equal(t, []string{"ai", "rule", "history", "secondary_ai"}, d.Sources())

	start := time.Now()
	report := d.Collect(context.Background(), testTxn())
	assert.Less(t, time.Since(start), 800*time.Millisecond, "ceiling bounds the wait")

	require.Len(t, report.Results, 1)
	assert.Equal(t, "rule", report.Results[0].Source)
	assert.Equal(t, 1, report.Responded())

	require.Len(t, report.Outcomes, 4)
	assert.Equal(t, StatusTimedOut, report.Outcomes[0].Status)
	assert.Equal(t, StatusResponded, report.Outcomes[1].Status)
	assert.Equal(t, StatusAbsent, report.Outcomes[2].Status)
	assert.Equal(t, StatusFailed, report.Outcomes[3].Status)
}

func TestDispatcher_PreservesConfiguredOrder(t *testing.T) {
	first := &fakeSource{name: "first", delay: 40 * time.Millisecond, result: model.SourceResult{Label: model.LabelNeed, Confidence: 0.5}}
	second := &fakeSource{name: "second", result: model.SourceResult{Label: model.LabelWant, Confidence: 0.5}}

	d := NewDispatcher(time.Second, common.DiscardLogger(),
		NewAdapter(first, AdapterConfig{Weight: 1, Retries: 0}),
		NewAdapter(second, AdapterConfig{Weight: 1, Retries: 0}),
	)

	report := d.Collect(context.Background(), testTxn())
	require.Len(t, report.Results, 2)
	assert.Equal(t, "first", report.Results[0].Source)
	assert.Equal(t, "second", report.Results[1].Source)
}

type labelLog []model.UserLabel

func (l labelLog) GetUserLabels(_ context.Context, _, _ string) ([]model.UserLabel, error) {
	return l, nil
}

func TestBuiltinSources(t *testing.T) {
	ctx := context.Background()
	txn := testTxn()

	rule := NewRuleSource(rules.NewClassifier(rules.DefaultTable()))
	got, err := rule.Invoke(ctx, txn)
	require.NoError(t, err)
	assert.Equal(t, model.LabelWant, got.Label)
	assert.False(t, rule.Remote())

	empty := NewHistorySource(history.NewMatcher(labelLog{}, history.DefaultConfig()))
	_, err = empty.Invoke(ctx, txn)
	assert.ErrorIs(t, err, ErrAbsent)

	log := labelLog{{Label: model.LabelNeed}, {Label: model.LabelNeed}, {Label: model.LabelNeed}}
	got, err = NewHistorySource(history.NewMatcher(log, history.DefaultConfig())).Invoke(ctx, txn)
	require.NoError(t, err)
	assert.Equal(t, model.LabelNeed, got.Label)

	ai := NewAISource(NameSecondaryAI, judgeFunc(func(context.Context, model.Transaction) (model.SourceResult, error) {
		return model.SourceResult{}, errors.New("quota")
	}))
	assert.True(t, ai.Remote())
	assert.Equal(t, NameSecondaryAI, ai.Name())
	_, err = ai.Invoke(ctx, txn)
	assert.ErrorContains(t, err, "secondary_ai")
}

type judgeFunc func(context.Context, model.Transaction) (model.SourceResult, error)

func (f judgeFunc) Judge(ctx context.Context, txn model.Transaction) (model.SourceResult, error) {
	return f(ctx, txn)
}
