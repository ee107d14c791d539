package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/balance/internal/config"
	"github.com/Veraticus/balance/internal/embedding"
	"github.com/Veraticus/balance/internal/engine"
	"github.com/Veraticus/balance/internal/ensemble"
	"github.com/Veraticus/balance/internal/history"
	"github.com/Veraticus/balance/internal/llm"
	"github.com/Veraticus/balance/internal/notify"
	"github.com/Veraticus/balance/internal/prediction"
	"github.com/Veraticus/balance/internal/rules"
	"github.com/Veraticus/balance/internal/service"
	"github.com/Veraticus/balance/internal/source"
	"github.com/Veraticus/balance/internal/storage"
)

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, cfg config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// app bundles a wired Coach with everything that must be closed afterwards.
type app struct {
	coach   *engine.Coach
	store   service.Storage
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp wires storage, sources, the combiner, embeddings and the notifier.
// Sources whose backend cannot be built are left out with a warning.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger := slog.Default()

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{store: store, closers: []func(){func() { _ = store.Close() }}}

	adapters, err := buildAdapters(cfg, store, logger, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	var embedder embedding.Embedder
	embedder, err = embedding.New(cfg.Embedding)
	if err != nil {
		logger.Warn("Similarity search disabled", "provider", cfg.Embedding.Provider, "error", err)
		embedder = nil
	} else if cached, ok := embedder.(*embedding.Cached); ok {
		a.closers = append(a.closers, cached.Close)
	}

	predictor, err := prediction.NewEngine(store, embedder, cfg.Prediction, nil, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	coach, err := engine.NewCoach(engine.Deps{
		Storage:        store,
		Dispatcher:     source.NewDispatcher(cfg.Ensemble.Ceiling, logger, adapters...),
		Combiner:       ensemble.NewCombiner(cfg.Ensemble.Config),
		Predictor:      predictor,
		Embedder:       embedder,
		EmbeddingModel: cfg.Embedding.Model,
		Notifier:       notify.NewLogNotifier(logger),
		Logger:         logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.coach = coach
	return a, nil
}

func buildAdapters(cfg config.Config, store service.Storage, logger *slog.Logger, a *app) ([]*source.Adapter, error) {
	var adapters []*source.Adapter
	add := func(src source.Source, sc config.SourceConfig) {
		adapters = append(adapters, source.NewAdapter(src, source.AdapterConfig{
			Weight:  sc.Weight,
			Timeout: sc.Timeout,
			Retries: -1,
		}))
	}

	if cfg.Sources.Rule.Enabled {
		add(source.NewRuleSource(rules.NewClassifier(cfg.Rules)), cfg.Sources.Rule)
	}
	if cfg.Sources.AI.Enabled {
		if judge := buildJudge(cfg.LLM, logger, a); judge != nil {
			add(source.NewAISource(source.NameAI, judge), cfg.Sources.AI)
		}
	}
	if cfg.Sources.History.Enabled {
		add(source.NewHistorySource(history.NewMatcher(store, cfg.History)), cfg.Sources.History)
	}
	if cfg.Sources.SecondaryAI.Enabled {
		if judge := buildJudge(cfg.SecondaryLLM, logger, a); judge != nil {
			add(source.NewAISource(source.NameSecondaryAI, judge), cfg.Sources.SecondaryAI)
		}
	}

	if len(adapters) == 0 {
		return nil, errors.New("no classification source could be started")
	}
	return adapters, nil
}

func buildJudge(cfg llm.Config, logger *slog.Logger, a *app) *llm.Classifier {
	if !cfg.Enabled() {
		return nil
	}
	if cfg.APIKey == "" {
		logger.Warn("AI source disabled: no API key", "provider", cfg.Provider)
		return nil
	}

	classifier, err := llm.NewClassifier(cfg, logger)
	if err != nil {
		logger.Warn("AI source disabled", "provider", cfg.Provider, "error", err)
		return nil
	}
	a.closers = append(a.closers, classifier.Close)
	return classifier
}
