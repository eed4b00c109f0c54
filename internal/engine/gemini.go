package engine

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// geminiModels is the subset of genai.Models the engine calls.
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// GeminiEngine serves generation and embeddings from the Gemini API.
type GeminiEngine struct {
	models geminiModels
	known  []string
}

// NewGeminiEngine creates a Gemini API client authenticated with apiKey.
// baseURL overrides the API endpoint when non-empty. models lists the model
// names ListModels reports.
func NewGeminiEngine(ctx context.Context, apiKey, baseURL string, models ...string) (*GeminiEngine, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiEngine{models: client.Models, known: models}, nil
}

func (e *GeminiEngine) Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(opts.Temperature)),
		TopP:            genai.Ptr(float32(opts.TopP)),
		TopK:            genai.Ptr(float32(opts.TopK)),
		MaxOutputTokens: int32(opts.MaxNewTokens),
	}
	resp, err := e.models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("generate content: %s (HTTP %d): %w", apiErr.Status, apiErr.Code, err)
		}
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("generate content: no candidates in response")
	}
	return resp.Text(), nil
}

func (e *GeminiEngine) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	resp, err := e.models.EmbedContent(ctx, model, genai.Text(text), &genai.EmbedContentConfig{})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("embed content: empty embeddings")
	}
	return resp.Embeddings[0].Values, nil
}

// IsRunning reports whether the first configured model can be looked up.
func (e *GeminiEngine) IsRunning(ctx context.Context) bool {
	if len(e.known) == 0 {
		return true
	}
	return e.HasModel(ctx, e.known[0])
}

func (e *GeminiEngine) ListModels(ctx context.Context) ([]string, error) {
	var names []string
	for _, m := range e.known {
		if e.HasModel(ctx, m) {
			names = append(names, m)
		}
	}
	return names, nil
}

func (e *GeminiEngine) HasModel(ctx context.Context, name string) bool {
	m, err := e.models.Get(ctx, name, nil)
	return err == nil && m != nil
}

// PullModel is a no-op error: Gemini models are hosted.
func (e *GeminiEngine) PullModel(_ context.Context, name string, _ func(PullProgress)) error {
	return fmt.Errorf("gemini model %s is not available and cannot be pulled", name)
}

// Close is a no-op; the genai client holds no resources that need releasing.
func (e *GeminiEngine) Close() error { return nil }
