package chat

import (
	"context"

	"github.com/kalambet/folio/internal/engine"
)

// TextGenerator completes a prompt. Implementations return only the
// continuation, never the prompt itself.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator binds an engine to a generation model and fixed sampling
// parameters.
type Generator struct {
	engine engine.Engine
	model  string
	opts   engine.GenerateOptions
}

// NewGenerator creates a Generator. The token budget is clamped to
// 1..engine.MaxNewTokens.
func NewGenerator(e engine.Engine, model string, opts engine.GenerateOptions) *Generator {
	if opts.MaxNewTokens <= 0 || opts.MaxNewTokens > engine.MaxNewTokens {
		opts.MaxNewTokens = engine.MaxNewTokens
	}
	return &Generator{engine: e, model: model, opts: opts}
}

// Model returns the generation model name.
func (g *Generator) Model() string { return g.model }

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.engine.Generate(ctx, g.model, prompt, g.opts)
}
