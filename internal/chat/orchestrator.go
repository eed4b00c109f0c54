package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/folio/internal/docset"
	"github.com/kalambet/folio/internal/retrieval"
	"github.com/kalambet/folio/internal/storage"
)

// DefaultTopK is the number of documents placed in the grounding context.
const DefaultTopK = 4

// Ranker orders candidate documents by similarity to a query.
type Ranker interface {
	Rank(ctx context.Context, query string, docs []docset.Document, topK int) ([]retrieval.ScoredDocument, error)
}

// DocSource supplies the current document set. Implementations degrade to
// an empty set rather than failing.
type DocSource interface {
	Docs(ctx context.Context) []docset.Document
}

// Reply is the outcome of one turn.
type Reply struct {
	Content  string
	Path     string
	DocIDs   []string
	Duration time.Duration
}

// Orchestrator answers a single query: FAQ shortcut first, then retrieval,
// prompt assembly, generation, safety filter and fallback. It holds no
// per-conversation state and is safe for concurrent use.
type Orchestrator struct {
	faq           *FAQ
	ranker        Ranker
	docs          DocSource
	generator     TextGenerator
	canonicalName string
	topK          int
	logger        *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTopK overrides DefaultTopK.
func WithTopK(k int) Option {
	return func(o *Orchestrator) { o.topK = k }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator wires the turn pipeline. A nil faq uses DefaultFAQ and a
// nil docs source behaves as an empty document set.
func NewOrchestrator(faq *FAQ, ranker Ranker, docs DocSource, gen TextGenerator, canonicalName string, opts ...Option) *Orchestrator {
	if faq == nil {
		faq = DefaultFAQ(canonicalName)
	}
	o := &Orchestrator{
		faq:           faq,
		ranker:        ranker,
		docs:          docs,
		generator:     gen,
		canonicalName: canonicalName,
		topK:          DefaultTopK,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Answer runs one turn for query. It never fails: provider errors and
// panics become ErrorMessage with Path set to storage.PathError.
func (o *Orchestrator) Answer(ctx context.Context, query string) (reply Reply) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("chat turn panicked", "panic", r)
			reply = Reply{Content: ErrorMessage, Path: storage.PathError}
		}
		reply.Duration = time.Since(start)
	}()

	if answer, ok := o.faq.Lookup(query); ok {
		o.logger.Debug("faq hit", "query", query)
		return Reply{Content: answer, Path: storage.PathFAQ}
	}

	ranked := o.retrieve(ctx, query)
	ids := docIDs(ranked)

	prompt := BuildPrompt(o.canonicalName, BuildContext(ranked), query)
	completion, err := o.generate(ctx, prompt)
	if err != nil {
		o.logger.Warn("generation failed", "error", err)
		return Reply{Content: ErrorMessage, Path: storage.PathError, DocIDs: ids}
	}
	answer := ExtractAnswer(completion)

	if !IsSafe(answer) {
		o.logger.Info("answer rejected by safety filter", "query", query)
		return Reply{Content: RefusalMessage, Path: storage.PathRefused, DocIDs: ids}
	}
	if isDontKnow(answer) {
		return Reply{Content: fallbackAnswer(query, o.canonicalName, ranked), Path: storage.PathFallback, DocIDs: ids}
	}
	return Reply{Content: answer, Path: storage.PathRAG, DocIDs: ids}
}

// retrieve ranks the current document set. Any failure yields no context.
func (o *Orchestrator) retrieve(ctx context.Context, query string) []retrieval.ScoredDocument {
	if o.ranker == nil || o.docs == nil {
		return nil
	}
	docs := o.docs.Docs(ctx)
	if len(docs) == 0 {
		return nil
	}
	ranked, err := o.ranker.Rank(ctx, query, docs, o.topK)
	if err != nil {
		o.logger.Warn("ranking failed, answering without context", "error", err)
		return nil
	}
	return ranked
}

var errNoGenerator = errors.New("no generator configured")

func (o *Orchestrator) generate(ctx context.Context, prompt string) (string, error) {
	if o.generator == nil {
		return "", errNoGenerator
	}
	out, err := o.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return out, nil
}

// Search ranks the current document set against query without generating.
func (o *Orchestrator) Search(ctx context.Context, query string, topK int) ([]retrieval.ScoredDocument, error) {
	if o.ranker == nil || o.docs == nil {
		return []retrieval.ScoredDocument{}, nil
	}
	return o.ranker.Rank(ctx, query, o.docs.Docs(ctx), topK)
}

func docIDs(docs []retrieval.ScoredDocument) []string {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}
