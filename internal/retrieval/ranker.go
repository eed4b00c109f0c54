package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kalambet/folio/internal/docset"
)

// ScoredDocument is a document with its similarity to the current query.
type ScoredDocument struct {
	docset.Document
	Score float32 `json:"score"`
}

// Ranker orders documents by cosine similarity to a query. Document vectors
// are kept in a VectorCache so each is computed once per text.
type Ranker struct {
	embedder *Embedder
	cache    VectorCache
	logger   *slog.Logger
}

// NewRanker creates a Ranker. A nil cache selects a MemoryCache.
func NewRanker(embedder *Embedder, cache VectorCache) *Ranker {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Ranker{embedder: embedder, cache: cache, logger: slog.Default()}
}

// Rank returns at most topK documents from docs, highest score first. Equal
// scores keep their order in docs. An embedding failure is returned as is and
// nothing is ranked.
func (r *Ranker) Rank(ctx context.Context, query string, docs []docset.Document, topK int) ([]ScoredDocument, error) {
	if topK <= 0 || len(docs) == 0 {
		return []ScoredDocument{}, nil
	}

	qvec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	vecs, err := r.vectors(ctx, docs)
	if err != nil {
		return nil, err
	}

	qNorm := norm(qvec)
	scored := make([]ScoredDocument, len(docs))
	for i, d := range docs {
		scored[i] = ScoredDocument{Document: d, Score: dotProduct(qvec, vecs[i], qNorm)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// Warm computes and caches the vectors of every document not cached yet.
func (r *Ranker) Warm(ctx context.Context, docs []docset.Document) error {
	_, err := r.vectors(ctx, docs)
	return err
}

// vectors returns one vector per document, embedding only cache misses.
func (r *Ranker) vectors(ctx context.Context, docs []docset.Document) ([][]float32, error) {
	model := r.embedder.Model()
	vecs := make([][]float32, len(docs))

	var missing []int
	for i, d := range docs {
		v, ok, err := r.cache.Get(ctx, CacheKey(model, d))
		if err != nil {
			r.logger.Warn("vector cache read failed", "doc", d.ID, "error", err)
		}
		if ok {
			vecs[i] = v
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return vecs, nil
	}

	texts := make([]string, len(missing))
	for j, i := range missing {
		texts[j] = docs[i].Text
	}
	fresh, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}
	for j, i := range missing {
		vecs[i] = fresh[j]
		if err := r.cache.Put(ctx, CacheKey(model, docs[i]), fresh[j]); err != nil {
			r.logger.Warn("vector cache write failed", "doc", docs[i].ID, "error", err)
		}
	}
	r.logger.Debug("embedded documents", "count", len(missing), "model", model)
	return vecs, nil
}
