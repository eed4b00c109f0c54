package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/kalambet/folio/internal/chat"
	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/docset"
	"github.com/kalambet/folio/internal/engine"
	"github.com/kalambet/folio/internal/retrieval"
	"github.com/kalambet/folio/internal/storage"
)

// assistant is the set of components every chat surface shares.
type assistant struct {
	cfg         config.Config
	engine      engine.Engine
	store       *storage.Store
	docs        *docset.Source
	ranker      *retrieval.Ranker
	generator   *chat.Generator
	orch        *chat.Orchestrator
	suggestions []string
}

// newAssistant opens the engine and storage and wires the answering
// pipeline. Readiness progress goes to progress.
func newAssistant(ctx context.Context, cfg config.Config, progress io.Writer) (*assistant, error) {
	faq, suggestions, err := chat.LoadContent(cfg.Chat.FAQFile, cfg.Chat.CanonicalName)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(ctx, engine.Config{
		Backend:       cfg.Engine.Backend,
		BaseURL:       cfg.Engine.BaseURL,
		APIKey:        cfg.Engine.APIKey,
		EmbedModel:    cfg.Engine.EmbedModel,
		GenerateModel: cfg.Engine.GenerateModel,
	})
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	if err := engine.EnsureReady(ctx, eng, cfg.Engine.GenerateModel, cfg.Engine.EmbedModel, progress); err != nil {
		eng.Close()
		return nil, err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		eng.Close()
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	docs := docset.NewSource(cfg.Docs.Source, slog.Default())
	ranker := retrieval.NewRanker(retrieval.NewEmbedder(eng, cfg.Engine.EmbedModel), store.Embeddings())
	gen := chat.NewGenerator(eng, cfg.Engine.GenerateModel, engine.GenerateOptions{
		MaxNewTokens:      cfg.Generation.MaxNewTokens,
		Temperature:       cfg.Generation.Temperature,
		RepetitionPenalty: cfg.Generation.RepetitionPenalty,
		TopK:              cfg.Generation.TopK,
		TopP:              cfg.Generation.TopP,
	})
	orch := chat.NewOrchestrator(faq, ranker, docs, gen, cfg.Chat.CanonicalName,
		chat.WithTopK(cfg.Retrieval.TopK),
	)

	return &assistant{
		cfg:         cfg,
		engine:      eng,
		store:       store,
		docs:        docs,
		ranker:      ranker,
		generator:   gen,
		orch:        orch,
		suggestions: suggestions,
	}, nil
}

// warm embeds the document set in the background so the first turn does
// not pay for it.
func (a *assistant) warm(ctx context.Context) {
	go func() {
		docs := a.docs.Docs(ctx)
		if err := a.ranker.Warm(ctx, docs); err != nil {
			slog.Warn("embedding warm-up failed", "error", err)
			return
		}
		slog.Info("embeddings warmed", "documents", len(docs))
	}()
}

// watch reloads the document set on change and re-warms the new one.
func (a *assistant) watch(ctx context.Context) error {
	return a.docs.Watch(ctx, func(docs []docset.Document) {
		if !a.cfg.Retrieval.Warm {
			return
		}
		if err := a.ranker.Warm(ctx, docs); err != nil {
			slog.Warn("embedding warm-up after reload failed", "error", err)
		}
	})
}

func (a *assistant) local() bool {
	return engine.IsLocal(a.cfg.Engine.Backend)
}

func (a *assistant) Close() error {
	return errors.Join(a.engine.Close(), a.store.Close())
}
