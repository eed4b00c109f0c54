package engine

import "context"

// Engine abstracts a model backend (a local Ollama server, an
// OpenAI-compatible endpoint, or Gemini). The chat orchestrator and the
// similarity ranker only see this interface, so any backend can be swapped
// in without touching them.
type Engine interface {
	// Generate completes prompt with the given model and returns only the
	// continuation.
	Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (string, error)

	// Embed returns the embedding vector for text using the given model.
	Embed(ctx context.Context, model string, text string) ([]float32, error)

	// IsRunning reports whether the backend is reachable.
	IsRunning(ctx context.Context) bool

	// ListModels returns the names of the models the backend can serve.
	ListModels(ctx context.Context) ([]string, error)

	// HasModel reports whether the given model is available.
	HasModel(ctx context.Context, name string) bool

	// PullModel downloads a model. The optional callback receives progress updates.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error

	// Close releases the backend's connections. The engine must not be used
	// afterwards.
	Close() error
}
