// Package source wraps every classifier behind one capability and fans a
// transaction out to all of them under a shared deadline.
package source

import (
	"context"
	"errors"

	"github.com/Veraticus/balance/internal/model"
)

// ErrAbsent signals that a source has no opinion on a transaction.
// It excludes the source from the ensemble without counting as a failure.
var ErrAbsent = errors.New("source has no opinion")

// Source is one independent classifier.
type Source interface {
	// Name identifies the source in results and logs.
	Name() string
	// Remote reports whether calls leave the process and deserve a retry.
	Remote() bool
	// Invoke classifies txn. Implementations should honor ctx cancellation.
	Invoke(ctx context.Context, txn model.Transaction) (model.SourceResult, error)
}
