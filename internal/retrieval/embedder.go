package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/kalambet/folio/internal/engine"
	"golang.org/x/sync/errgroup"
)

// ErrDimensionMismatch is returned when one embedding batch yields vectors
// of different lengths.
var ErrDimensionMismatch = errors.New("embedding dimensions differ")

// batchConcurrency bounds in-flight Embed calls per batch.
const batchConcurrency = 4

// Embedder binds an Engine to the embedding model whose vectors the
// Ranker keeps in its side-table. Vectors from different models never
// share a cache key.
type Embedder struct {
	engine engine.Engine
	model  string
}

func NewEmbedder(e engine.Engine, model string) *Embedder {
	return &Embedder{engine: e, model: model}
}

// Model names the embedding model; it is part of every cache key.
func (e *Embedder) Model() string { return e.model }

// Embed embeds a query.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.engine.Embed(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vec, nil
}

// EmbedBatch embeds the document texts the Ranker's side-table is missing.
// Vectors come back in input order and all have one length, or the whole
// batch fails so nothing partial is cached. Empty input yields nil.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.engine.Embed(gCtx, e.model, text)
			if err != nil {
				return fmt.Errorf("embedding document %d: %w", i, err)
			}
			vecs[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dim := len(vecs[0])
	for i, v := range vecs[1:] {
		if len(v) != dim {
			return nil, fmt.Errorf("document %d has %d dimensions, document 0 has %d: %w",
				i+1, len(v), dim, ErrDimensionMismatch)
		}
	}
	return vecs, nil
}
