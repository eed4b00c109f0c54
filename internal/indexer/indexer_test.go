package indexer

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kalambet/folio/internal/docset"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func quietOptions(baseURL string) Options {
	return Options{BaseURL: baseURL, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestBuild_MarkdownSections(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "about.md", `Intro line before any heading.

# Experience
Senior engineer at Acme.

## Skills
Go, SQL.

# Empty

`)

	docs, err := Build(context.Background(), dir, quietOptions(""))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(docs), docs)
	}

	want := []docset.Document{
		{ID: "about-1", Title: "About", Text: "Intro line before any heading."},
		{ID: "about-2", Title: "Experience", Text: "Senior engineer at Acme."},
		{ID: "about-3", Title: "Skills", Text: "Go, SQL."},
	}
	for i, w := range want {
		if docs[i] != w {
			t.Errorf("docs[%d] = %+v, want %+v", i, docs[i], w)
		}
	}
}

func TestBuild_CodeFenceHashIsNotHeading(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "# Setup\n```sh\n# install\nmake\n```\n")

	docs, err := Build(context.Background(), dir, quietOptions(""))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(docs) != 1 || !strings.Contains(docs[0].Text, "# install") {
		t.Errorf("docs = %+v", docs)
	}
}

func TestBuild_HTML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "projects/index.html", `<!doctype html>
<html><head><title> My  Projects </title><style>body{color:red}</style></head>
<body><h1>Projects</h1><p>Built   folio.</p><script>alert(1)</script></body></html>`)

	docs, err := Build(context.Background(), dir, quietOptions("https://example.com/"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("len = %d, want 1", len(docs))
	}
	d := docs[0]
	if d.ID != "index-1" || d.Title != "My Projects" {
		t.Errorf("doc = %+v", d)
	}
	if d.Text != "Projects Built folio." {
		t.Errorf("Text = %q", d.Text)
	}
	if d.URL != "https://example.com/projects/index.html" {
		t.Errorf("URL = %q", d.URL)
	}
}

func TestBuild_SkipsUnsupportedHiddenAndBroken(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "photo.jpg", "not text")
	writeFile(t, dir, ".drafts/secret.md", "# Secret\nhidden")
	writeFile(t, dir, "resume.pdf", "this is not a pdf")
	writeFile(t, dir, "skills.md", "# Skills\nGo")

	docs, err := Build(context.Background(), dir, quietOptions(""))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "skills-1" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestBuild_SharedStemKeepsIDsUnique(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a/readme.md", "# One\nfirst")
	writeFile(t, dir, "b/readme.md", "# Two\nsecond")

	docs, err := Build(context.Background(), dir, quietOptions(""))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "readme-1" || docs[1].ID != "readme-2" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestBuild_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file.md", "x")
	if _, err := Build(context.Background(), filepath.Join(dir, "file.md"), quietOptions("")); err == nil {
		t.Error("expected error for file root")
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	out := filepath.Join(t.TempDir(), "chat", "index.json")
	docs := []docset.Document{
		{ID: "about-1", Title: "About", URL: "/about", Text: "Engineer & writer <3"},
		{ID: "about-2", Title: "Skills", Text: "Go"},
	}
	if err := WriteFile(out, docs); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("Engineer & writer <3")) {
		t.Error("HTML characters were escaped")
	}
	if bytes.Contains(data, []byte(`"url": ""`)) {
		t.Error("empty url should be omitted")
	}

	got, err := docset.Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 2 || got[0] != docs[0] || got[1] != docs[1] {
		t.Errorf("round trip = %+v", got)
	}
}

func TestTitleFromName(t *testing.T) {
	tests := map[string]string{
		"side-projects.md": "Side projects",
		"cv_2024.pdf":      "Cv 2024",
		"/x/y/about.html":  "About",
		"émigré.md":        "Émigré",
		"über_uns.txt":     "Über uns",
	}
	for in, want := range tests {
		if got := titleFromName(in); got != want {
			t.Errorf("titleFromName(%q) = %q, want %q", in, got, want)
		}
	}
}
