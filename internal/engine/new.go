package engine

import (
	"context"
	"fmt"
	"strings"
)

// DefaultOllamaURL is used when the ollama backend has no base URL configured.
const DefaultOllamaURL = "http://localhost:11434"

// Config selects and parameterizes a backend.
type Config struct {
	Backend       string // ollama, openai or gemini
	BaseURL       string
	APIKey        string
	EmbedModel    string
	GenerateModel string
}

// New constructs the Engine named by cfg.Backend.
func New(ctx context.Context, cfg Config) (Engine, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		return NewOllamaEngine(baseURL), nil
	case "openai":
		return NewOpenAIEngine(cfg.APIKey, cfg.BaseURL), nil
	case "gemini":
		g, err := NewGeminiEngine(ctx, cfg.APIKey, cfg.BaseURL, cfg.GenerateModel, cfg.EmbedModel)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.Backend)
	}
}

// IsLocal reports whether the backend runs on the user's own machine.
func IsLocal(backend string) bool {
	b := strings.ToLower(backend)
	return b == "" || b == "ollama"
}
