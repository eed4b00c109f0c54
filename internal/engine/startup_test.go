package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

type mockEngine struct {
	isRunning   bool
	models      map[string]bool
	pulled      []string
	generated   []string
	generateErr error
}

func (m *mockEngine) Generate(_ context.Context, model, _ string, _ GenerateOptions) (string, error) {
	m.generated = append(m.generated, model)
	return "pong", m.generateErr
}
func (m *mockEngine) Embed(_ context.Context, _ string, _ string) ([]float32, error) {
	return nil, nil
}
func (m *mockEngine) IsRunning(_ context.Context) bool { return m.isRunning }
func (m *mockEngine) Close() error                     { return nil }
func (m *mockEngine) ListModels(_ context.Context) ([]string, error) {
	var names []string
	for n := range m.models {
		names = append(names, n)
	}
	return names, nil
}
func (m *mockEngine) HasModel(_ context.Context, name string) bool { return m.models[name] }
func (m *mockEngine) PullModel(_ context.Context, name string, cb func(PullProgress)) error {
	m.pulled = append(m.pulled, name)
	if cb != nil {
		cb(PullProgress{Status: "success"})
	}
	return nil
}

func TestEnsureReady_AllModelsPresent(t *testing.T) {
	m := &mockEngine{
		isRunning: true,
		models:    map[string]bool{"gpt2": true, "all-minilm": true},
	}
	err := EnsureReady(context.Background(), m, "gpt2", "all-minilm", io.Discard)
	if err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 0 {
		t.Errorf("expected no pulls, got %v", m.pulled)
	}
	if len(m.generated) != 1 || m.generated[0] != "gpt2" {
		t.Errorf("expected one warm-up call on gpt2, got %v", m.generated)
	}
}

func TestEnsureReady_PullsMissing(t *testing.T) {
	m := &mockEngine{
		isRunning: true,
		models:    map[string]bool{"gpt2": true},
	}
	err := EnsureReady(context.Background(), m, "gpt2", "all-minilm", io.Discard)
	if err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 1 || m.pulled[0] != "all-minilm" {
		t.Errorf("expected pull of all-minilm, got %v", m.pulled)
	}
}

func TestEnsureReady_EngineDown(t *testing.T) {
	m := &mockEngine{isRunning: false, models: map[string]bool{}}
	err := EnsureReady(context.Background(), m, "gpt2", "all-minilm", io.Discard)
	if err == nil {
		t.Fatal("expected error when engine is down")
	}
}

func TestEnsureReady_WarmupFailureNonFatal(t *testing.T) {
	m := &mockEngine{
		isRunning:   true,
		models:      map[string]bool{"gpt2": true, "all-minilm": true},
		generateErr: errors.New("boom"),
	}
	var buf bytes.Buffer
	if err := EnsureReady(context.Background(), m, "gpt2", "all-minilm", &buf); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if !strings.Contains(buf.String(), "warm-up failed (non-fatal)") {
		t.Errorf("output = %q, want warm-up failure note", buf.String())
	}
}
