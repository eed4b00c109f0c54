package docset

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleSet = `[
  {"id":"about","title":"About","url":"/#about","text":"Anup Davin Mathivanan. builds web apps."},
  {"id":"skills","title":"Skills","text":"Go, TypeScript, React."},
  {"id":"","title":"No id","text":"dropped"},
  {"id":"empty","title":"Empty","text":"   "},
  {"id":"about","title":"Duplicate","text":"second about"}
]`

func TestParse_SkipsInvalidAndDuplicates(t *testing.T) {
	docs, err := Parse(strings.NewReader(sampleSet))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2: %+v", len(docs), docs)
	}
	if docs[0].ID != "about" || docs[0].Title != "About" {
		t.Errorf("docs[0] = %+v, want first 'about' entry", docs[0])
	}
	if docs[0].URL != "/#about" || docs[1].URL != "" {
		t.Errorf("urls = %q, %q", docs[0].URL, docs[1].URL)
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse(strings.NewReader(`{"not":"an array"}`)); err == nil {
		t.Fatal("expected error for non-array JSON")
	}
}

func TestFetch_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte(sampleSet), 0o644); err != nil {
		t.Fatal(err)
	}
	docs, err := Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("got %d docs, want 2", len(docs))
	}
}

func TestFetch_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/index.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, sampleSet)
	}))
	defer srv.Close()

	docs, err := Fetch(context.Background(), srv.URL+"/chat/index.json")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("got %d docs, want 2", len(docs))
	}
}

func TestLoad_FailureDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	for _, src := range []string{srv.URL + "/chat/index.json", filepath.Join(t.TempDir(), "missing.json")} {
		docs := Load(context.Background(), src, quietLogger())
		if docs == nil || len(docs) != 0 {
			t.Errorf("Load(%s) = %v, want empty non-nil set", src, docs)
		}
	}
}

func TestSource_LoadsOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, sampleSet)
	}))
	defer srv.Close()

	s := NewSource(srv.URL, quietLogger())
	if s.Loaded() {
		t.Fatal("source loaded before first use")
	}
	for range 3 {
		if got := len(s.Docs(context.Background())); got != 2 {
			t.Fatalf("Docs() len = %d, want 2", got)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("fetched %d times, want 1", got)
	}
}

func TestSource_ReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	os.WriteFile(path, []byte(sampleSet), 0o644)

	s := NewSource(path, quietLogger())
	if len(s.Docs(context.Background())) != 2 {
		t.Fatal("initial load failed")
	}

	os.WriteFile(path, []byte("not json"), 0o644)
	if err := s.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	if len(s.Docs(context.Background())) != 2 {
		t.Error("previous set was not kept after failed reload")
	}
}

func TestSource_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	os.WriteFile(path, []byte(`[{"id":"a","title":"A","text":"one"}]`), 0o644)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSource(path, quietLogger())
	s.Docs(ctx)

	changed := make(chan []Document, 4)
	if err := s.Watch(ctx, func(d []Document) { changed <- d }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	os.WriteFile(path, []byte(`[{"id":"a","title":"A","text":"one"},{"id":"b","title":"B","text":"two"}]`), 0o644)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case docs := <-changed:
			if len(docs) == 2 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestSource_WatchURLRejected(t *testing.T) {
	s := NewSource("https://example.com/chat/index.json", quietLogger())
	if err := s.Watch(context.Background(), nil); err == nil {
		t.Fatal("expected error watching a URL source")
	}
}
