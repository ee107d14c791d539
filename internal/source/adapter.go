package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Veraticus/balance/internal/common"
	"github.com/Veraticus/balance/internal/model"
	"github.com/Veraticus/balance/internal/service"
)

// DefaultTimeout bounds a single attempt when none is configured.
const DefaultTimeout = 3 * time.Second

// AdapterConfig carries the per-source settings.
type AdapterConfig struct {
	Weight  float64
	Timeout time.Duration
	// Retries overrides the retry budget. Negative means the default:
	// one retry for remote sources, none for local ones.
	Retries int
}

// Adapter bounds a Source with a timeout and retry budget and stamps its weight.
type Adapter struct {
	source  Source
	weight  float64
	timeout time.Duration
	retry   service.RetryOptions
}

// NewAdapter wraps src.
func NewAdapter(src Source, config AdapterConfig) *Adapter {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	retries := config.Retries
	if retries < 0 {
		retries = 0
		if src.Remote() {
			retries = 1
		}
	}

	return &Adapter{
		source:  src,
		weight:  config.Weight,
		timeout: timeout,
		retry: service.RetryOptions{
			MaxAttempts:  retries + 1,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     250 * time.Millisecond,
			Multiplier:   2,
		},
	}
}

// Name reports the wrapped source's name.
func (a *Adapter) Name() string { return a.source.Name() }

// Weight reports the configured vote weight.
func (a *Adapter) Weight() float64 { return a.weight }

// Invoke runs the source, retrying within budget. ErrAbsent is never retried.
func (a *Adapter) Invoke(ctx context.Context, txn model.Transaction) (model.SourceResult, error) {
	var result model.SourceResult

	attempt := func() error {
		r, err := a.attempt(ctx, txn)
		if errors.Is(err, ErrAbsent) {
			return common.Permanent(err)
		}
		if err != nil {
			return err
		}
		result = r
		return nil
	}

	var err error
	if a.retry.MaxAttempts <= 1 {
		err = attempt()
	} else {
		err = common.WithRetry(ctx, attempt, a.retry)
	}
	if err != nil {
		return model.SourceResult{}, err
	}

	return a.normalize(result)
}

// attempt makes one bounded call. A source that ignores cancellation is abandoned
// when the timeout fires; its late answer lands in a buffered channel and is dropped.
func (a *Adapter) attempt(ctx context.Context, txn model.Transaction) (model.SourceResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type outcome struct {
		err    error
		result model.SourceResult
	}
	done := make(chan outcome, 1)

	go func() {
		r, err := a.source.Invoke(attemptCtx, txn)
		done <- outcome{result: r, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-attemptCtx.Done():
		return model.SourceResult{}, fmt.Errorf("%s: %w", a.source.Name(), attemptCtx.Err())
	}
}

func (a *Adapter) normalize(result model.SourceResult) (model.SourceResult, error) {
	if result.Label == "" {
		result.Label = model.LabelUnknown
	}
	if _, err := model.ParseLabel(string(result.Label)); err != nil {
		return model.SourceResult{}, fmt.Errorf("%s: %w", a.source.Name(), err)
	}
	if math.IsNaN(result.Confidence) {
		result.Confidence = 0
	}

	result.Source = a.source.Name()
	result.Weight = a.weight
	result.Confidence = math.Max(0, math.Min(1, result.Confidence))
	return result, nil
}
