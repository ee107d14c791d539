package source

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Veraticus/balance/internal/model"
)

// DefaultCeiling bounds the whole fan-out when none is configured.
const DefaultCeiling = 8 * time.Second

// Status describes how a source fared for one transaction.
type Status string

// Status values.
const (
	StatusResponded Status = "responded"
	StatusAbsent    Status = "absent"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Outcome is the per-source line of a Report.
type Outcome struct {
	Err     error
	Source  string
	Status  Status
	Latency time.Duration
}

// Report holds whatever the sources produced before the ceiling.
type Report struct {
	// Results holds responding sources in configured order.
	Results []model.SourceResult
	// Outcomes has one entry per adapter in configured order.
	Outcomes []Outcome
}

// Responded counts sources that produced a result.
func (r Report) Responded() int {
	return len(r.Results)
}

// Dispatcher fans a transaction out to every adapter concurrently.
type Dispatcher struct {
	logger   *slog.Logger
	adapters []*Adapter
	ceiling  time.Duration
}

// NewDispatcher creates a dispatcher over adapters, which fixes the result order.
func NewDispatcher(ceiling time.Duration, logger *slog.Logger, adapters ...*Adapter) *Dispatcher {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		adapters: adapters,
		ceiling:  ceiling,
		logger:   logger,
	}
}

// Sources lists the adapter names in configured order.
func (d *Dispatcher) Sources() []string {
	names := make([]string, len(d.adapters))
	for i, a := range d.adapters {
		names[i] = a.Name()
	}
	return names
}

// Collect invokes all adapters and returns once every adapter has answered or the
// ceiling passes, whichever comes first. Stragglers are not waited for.
func (d *Dispatcher) Collect(ctx context.Context, txn model.Transaction) Report {
	ceilingCtx, cancel := context.WithTimeout(ctx, d.ceiling)
	defer cancel()

	type indexed struct {
		err     error
		result  model.SourceResult
		latency time.Duration
		index   int
	}

	// Sized so that late senders never block after Collect returns.
	answers := make(chan indexed, len(d.adapters))
	start := time.Now()

	for i, adapter := range d.adapters {
		go func(i int, adapter *Adapter) {
			result, err := adapter.Invoke(ceilingCtx, txn)
			answers <- indexed{index: i, result: result, err: err, latency: time.Since(start)}
		}(i, adapter)
	}

	outcomes := make([]Outcome, len(d.adapters))
	results := make([]*model.SourceResult, len(d.adapters))
	received := make([]bool, len(d.adapters))

	pending := len(d.adapters)
wait:
	for pending > 0 {
		select {
		case a := <-answers:
			pending--
			received[a.index] = true
			outcomes[a.index] = d.classifyOutcome(d.adapters[a.index].Name(), a.err, a.latency)
			if a.err == nil {
				r := a.result
				results[a.index] = &r
			}
		case <-ceilingCtx.Done():
			break wait
		}
	}

	report := Report{Outcomes: outcomes}
	for i, adapter := range d.adapters {
		if !received[i] {
			outcomes[i] = Outcome{
				Source:  adapter.Name(),
				Status:  StatusTimedOut,
				Err:     ceilingCtx.Err(),
				Latency: time.Since(start),
			}
		}
		if results[i] != nil {
			report.Results = append(report.Results, *results[i])
		}
		d.logOutcome(txn.ID, outcomes[i])
	}

	return report
}

func (d *Dispatcher) classifyOutcome(name string, err error, latency time.Duration) Outcome {
	o := Outcome{Source: name, Err: err, Latency: latency}
	switch {
	case err == nil:
		o.Status = StatusResponded
	case errors.Is(err, ErrAbsent):
		o.Status = StatusAbsent
		o.Err = nil
	case errors.Is(err, context.DeadlineExceeded):
		o.Status = StatusTimedOut
	default:
		o.Status = StatusFailed
	}
	return o
}

func (d *Dispatcher) logOutcome(transactionID string, o Outcome) {
	switch o.Status {
	case StatusResponded, StatusAbsent:
		d.logger.Debug("Source finished",
			"transaction_id", transactionID,
			"source", o.Source,
			"status", o.Status,
			"latency", o.Latency)
	default:
		d.logger.Warn("Source degraded",
			"transaction_id", transactionID,
			"source", o.Source,
			"status", o.Status,
			"latency", o.Latency,
			"error", o.Err)
	}
}
