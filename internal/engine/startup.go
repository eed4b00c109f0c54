package engine

import (
	"context"
	"fmt"
	"io"
	"time"
)

// EnsureReady is the open step of an engine's lifecycle. It checks that the
// backend is reachable, pulls missing models with progress written to w, and
// sends one short generation so the first real turn does not pay the model
// load. A failed warm-up is reported but not fatal.
func EnsureReady(ctx context.Context, e Engine, generateModel, embedModel string, w io.Writer) error {
	if !e.IsRunning(ctx) {
		return fmt.Errorf("inference engine is not reachable; for Ollama start it with: ollama serve")
	}

	models := make([]string, 0, 2)
	if generateModel != "" {
		models = append(models, generateModel)
	}
	if embedModel != "" && embedModel != generateModel {
		models = append(models, embedModel)
	}

	for _, model := range models {
		if e.HasModel(ctx, model) {
			fmt.Fprintf(w, "model %s: ready\n", model)
			continue
		}

		fmt.Fprintf(w, "model %s: pulling...\n", model)
		err := e.PullModel(ctx, model, func(p PullProgress) {
			if p.Total > 0 {
				pct := float64(p.Completed) / float64(p.Total) * 100
				fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
			} else {
				fmt.Fprintf(w, "  %s\n", p.Status)
			}
		})
		if err != nil {
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
		fmt.Fprintf(w, "model %s: ready\n", model)
	}

	if generateModel == "" {
		return nil
	}
	fmt.Fprintf(w, "model %s: warming up...\n", generateModel)
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	opts := DefaultGenerateOptions()
	opts.MaxNewTokens = 1
	if _, err := e.Generate(warmCtx, generateModel, "ping", opts); err != nil {
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", generateModel, err)
	} else {
		fmt.Fprintf(w, "model %s: warm\n", generateModel)
	}
	return nil
}
