package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestOpenAIEngine_Generate(t *testing.T) {
	var got chatCompletionRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"He builds things."}}]}`)
	}))
	defer srv.Close()

	e := NewOpenAIEngine("test-key", srv.URL)
	out, err := e.Generate(context.Background(), "gpt-4o-mini", "USER: hi\nASSISTANT:", DefaultGenerateOptions())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "He builds things." {
		t.Errorf("out = %q", out)
	}
	if auth != "Bearer test-key" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.MaxTokens != 80 || got.Temperature != 0.7 || got.TopP != 0.95 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestOpenAIEngine_Generate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	e := NewOpenAIEngine("k", srv.URL)
	if _, err := e.Generate(context.Background(), "m", "p", DefaultGenerateOptions()); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestOpenAIEngine_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"data":[{"embedding":[0.5,0.25]}]}`)
	}))
	defer srv.Close()

	e := NewOpenAIEngine("k", srv.URL)
	vec, err := e.Embed(context.Background(), "text-embedding-3-small", "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 {
		t.Errorf("vec = %v", vec)
	}
}

func TestOpenAIEngine_RateLimit_Retry(t *testing.T) {
	var attempt atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempt.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	e := NewOpenAIEngine("k", srv.URL)
	e.backoff = time.Millisecond
	if _, err := e.Generate(context.Background(), "m", "p", DefaultGenerateOptions()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := attempt.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestOpenAIEngine_RateLimit_Exhausted(t *testing.T) {
	var attempt atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewOpenAIEngine("k", srv.URL)
	e.backoff = time.Millisecond
	_, err := e.Generate(context.Background(), "m", "p", DefaultGenerateOptions())
	if err == nil {
		t.Fatal("expected error after retries")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error = %q, want rate limited", err)
	}
	if got := attempt.Load(); got != maxRetries {
		t.Errorf("attempts = %d, want %d", got, maxRetries)
	}
}

func TestOpenAIEngine_HasModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"gpt-4o-mini"},{"id":"text-embedding-3-small"}]}`)
	}))
	defer srv.Close()

	e := NewOpenAIEngine("k", srv.URL)
	if !e.IsRunning(context.Background()) {
		t.Error("IsRunning() = false, want true")
	}
	if !e.HasModel(context.Background(), "gpt-4o-mini") {
		t.Error("HasModel(gpt-4o-mini) = false, want true")
	}
	if e.HasModel(context.Background(), "gpt2") {
		t.Error("HasModel(gpt2) = true, want false")
	}
}

func TestOpenAIEngine_CloseKeepsEngineUsable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"embedding":[1]}]}`)
	}))
	defer srv.Close()

	e := NewOpenAIEngine("k", srv.URL)
	if _, err := e.Embed(context.Background(), "m", "before"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := e.Embed(context.Background(), "m", "after"); err != nil {
		t.Errorf("Embed after Close: %v", err)
	}
}
