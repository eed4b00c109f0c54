package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/folio/internal/chat"
	"github.com/kalambet/folio/internal/retrieval"
	"github.com/kalambet/folio/internal/storage"
)

// --- mocks ---

type mockAssistant struct {
	answerFn func(ctx context.Context, query string) chat.Reply
	searchFn func(ctx context.Context, query string, topK int) ([]retrieval.ScoredDocument, error)
}

func (m *mockAssistant) Answer(ctx context.Context, query string) chat.Reply {
	return m.answerFn(ctx, query)
}

func (m *mockAssistant) Search(ctx context.Context, query string, topK int) ([]retrieval.ScoredDocument, error) {
	return m.searchFn(ctx, query, topK)
}

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store) {
	t.Helper()
	store := newTestStore(t)
	return MCPDeps{
		Assistant: newTestOrchestrator(replying("He builds backend services in Go.")),
		Docs:      testDocs(),
		Store:     store,
		Recorder:  store,
		Model:     "test-model",
	}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_Ask_FAQ(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	handler := mcpAsk(deps)

	result, err := handler(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"question": "What is his name?",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if text := toolText(t, result); text != testName {
		t.Fatalf("answer = %q, want %q", text, testName)
	}

	logged, err := store.ListInteractions(context.Background(), "mcp", 10)
	if err != nil {
		t.Fatalf("listing interactions: %v", err)
	}
	if len(logged) != 1 || logged[0].Path != storage.PathFAQ || logged[0].Model != "test-model" {
		t.Fatalf("logged = %+v", logged)
	}
}

func TestMCPTool_Ask_GeneratorError(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	deps.Assistant = newTestOrchestrator(&mockGenerator{generateFn: func(context.Context, string) (string, error) {
		return "", errors.New("engine down")
	}})
	handler := mcpAsk(deps)

	result, err := handler(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"question": "what are his skills",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if toolText(t, result) != chat.ErrorMessage {
		t.Errorf("text = %q", toolText(t, result))
	}
}

func TestMCPTool_Ask_MissingQuestion(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	result, err := mcpAsk(deps)(context.Background(), makeCallToolRequest("ask", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
}

func TestMCPTool_Search(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	var gotK int
	deps.Assistant = &mockAssistant{searchFn: func(_ context.Context, _ string, topK int) ([]retrieval.ScoredDocument, error) {
		gotK = topK
		docs := testDocs().Docs(context.Background())
		return []retrieval.ScoredDocument{{Document: docs[1], Score: 0.9}, {Document: docs[0], Score: 0.4}}, nil
	}}

	result, err := mcpSearch(deps)(context.Background(), makeCallToolRequest("search", map[string]interface{}{
		"query": "go",
		"limit": 500,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotK != 50 {
		t.Errorf("topK = %d, want capped 50", gotK)
	}

	var docs []retrieval.ScoredDocument
	if err := json.Unmarshal([]byte(toolText(t, result)), &docs); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "skills-1" || docs[0].Score != 0.9 {
		t.Fatalf("docs = %+v", docs)
	}
}

func TestMCPTool_Search_EmptyAndError(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	deps.Assistant = &mockAssistant{searchFn: func(context.Context, string, int) ([]retrieval.ScoredDocument, error) {
		return nil, nil
	}}
	result, _ := mcpSearch(deps)(context.Background(), makeCallToolRequest("search", map[string]interface{}{"query": "x"}))
	if toolText(t, result) != "[]" {
		t.Errorf("text = %q, want []", toolText(t, result))
	}

	deps.Assistant = &mockAssistant{searchFn: func(context.Context, string, int) ([]retrieval.ScoredDocument, error) {
		return nil, errors.New("embed failed")
	}}
	result, _ = mcpSearch(deps)(context.Background(), makeCallToolRequest("search", map[string]interface{}{"query": "x"}))
	if !result.IsError {
		t.Error("expected error result")
	}
}

func TestMCPResource_Documents(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	contents, err := mcpResourceDocuments(deps)(context.Background(), makeReadResourceRequest("folio://documents"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.URI != "folio://documents" || !strings.Contains(tc.Text, `"about-1"`) {
		t.Errorf("contents = %+v", tc)
	}
}

func TestMCPResource_Recent(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	seedInteractions(t, store)

	contents, err := mcpResourceRecent(deps)(context.Background(), makeReadResourceRequest("folio://interactions/recent"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc := contents[0].(mcp.TextResourceContents)

	var summaries []struct {
		ID   string `json:"id"`
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(tc.Text), &summaries); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if len(summaries) != 3 || summaries[0].ID != "int-3" {
		t.Fatalf("summaries = %+v", summaries)
	}
}

func TestMCPServer_ConcurrentCalls(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	ask := mcpAsk(deps)
	search := mcpSearch(deps)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := ask(context.Background(), makeCallToolRequest("ask", map[string]interface{}{"question": "skills"})); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := search(context.Background(), makeCallToolRequest("search", map[string]interface{}{"query": "go"})); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent call failed: %v", err)
	}
}

func TestNewMCPServer(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	if NewMCPServer(deps, "test") == nil {
		t.Fatal("nil server")
	}
}
