// Package engine hosts the Coach, which turns raw purchases into classified,
// persisted transactions and answers insight queries over the history.
package engine

import (
	"errors"
	"log/slog"
	"time"

	"github.com/Veraticus/balance/internal/embedding"
	"github.com/Veraticus/balance/internal/ensemble"
	"github.com/Veraticus/balance/internal/feedback"
	"github.com/Veraticus/balance/internal/prediction"
	"github.com/Veraticus/balance/internal/service"
	"github.com/Veraticus/balance/internal/source"
)

// Deps are the collaborators a Coach is assembled from.
type Deps struct {
	Storage    service.Storage
	Dispatcher *source.Dispatcher
	Combiner   *ensemble.Combiner
	Predictor  *prediction.Engine
	// Embedder is optional; without it new transactions are stored unembedded.
	Embedder       embedding.Embedder
	EmbeddingModel string
	// Notifier is optional; without it review prompts are only logged.
	Notifier service.Notifier
	Now      func() time.Time
	Logger   *slog.Logger
}

// Coach orchestrates classification, feedback and insights for every user.
type Coach struct {
	storage        service.Storage
	dispatcher     *source.Dispatcher
	combiner       *ensemble.Combiner
	predictor      *prediction.Engine
	learner        *feedback.Learner
	embedder       embedding.Embedder
	notifier       service.Notifier
	now            func() time.Time
	logger         *slog.Logger
	embeddingModel string
}

// NewCoach creates a Coach from its dependencies.
func NewCoach(deps Deps) (*Coach, error) {
	if deps.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if deps.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if deps.Combiner == nil {
		return nil, errors.New("combiner is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	predictor := deps.Predictor
	if predictor == nil {
		var err error
		predictor, err = prediction.NewEngine(deps.Storage, deps.Embedder, prediction.DefaultConfig(), deps.Now, deps.Logger)
		if err != nil {
			return nil, err
		}
	}

	return &Coach{
		storage:        deps.Storage,
		dispatcher:     deps.Dispatcher,
		combiner:       deps.Combiner,
		predictor:      predictor,
		learner:        feedback.NewLearner(deps.Storage, deps.Now, deps.Logger),
		embedder:       deps.Embedder,
		embeddingModel: deps.EmbeddingModel,
		notifier:       deps.Notifier,
		now:            deps.Now,
		logger:         deps.Logger,
	}, nil
}

// Sources lists the configured classification sources in order.
func (c *Coach) Sources() []string {
	return c.dispatcher.Sources()
}
