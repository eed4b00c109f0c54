// Package indexer builds the chat document set from a directory of site
// content: Markdown and text files, HTML pages and PDF résumés.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kalambet/folio/internal/docset"
)

// Options controls how documents are named.
type Options struct {
	// BaseURL, when set, gives every document the URL
	// <BaseURL>/<path relative to the root>.
	BaseURL string

	Logger *slog.Logger
}

// section is one titled chunk of a source file.
type section struct {
	title string
	text  string
}

type extractor func(path string) ([]section, error)

var extractors = map[string]extractor{
	".md":       extractMarkdown,
	".markdown": extractMarkdown,
	".txt":      extractMarkdown,
	".html":     extractHTML,
	".htm":      extractHTML,
	".pdf":      extractPDF,
}

// Supported reports whether Build indexes files with the given name.
func Supported(name string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Build walks root and returns one document per section of every supported
// file, in lexical path order. Files that fail to parse are logged and
// skipped. Document ids are <file stem>-<n>, numbered from 1 and continued
// across files sharing a stem.
func Build(ctx context.Context, root string, opts Options) ([]docset.Document, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading content root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content root %s is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && Supported(d.Name()) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)

	counters := make(map[string]int)
	docs := []docset.Document{}
	for _, p := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sections, err := extractors[strings.ToLower(filepath.Ext(p))](p)
		if err != nil {
			logger.Warn("skipping file", "path", p, "error", err)
			continue
		}

		rel, _ := filepath.Rel(root, p)
		stem := fileStem(p)
		for _, s := range sections {
			counters[stem]++
			docs = append(docs, docset.Document{
				ID:    stem + "-" + strconv.Itoa(counters[stem]),
				Title: s.title,
				URL:   documentURL(opts.BaseURL, rel),
				Text:  s.text,
			})
		}
		logger.Debug("indexed file", "path", p, "sections", len(sections))
	}
	return docs, nil
}

func fileStem(p string) string {
	base := filepath.Base(p)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToLower(strings.Join(strings.Fields(stem), "-"))
}

func documentURL(baseURL, rel string) string {
	if baseURL == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/" + path.Clean(filepath.ToSlash(rel))
}

// Write encodes docs as the indented JSON array served at /chat/index.json.
func Write(w io.Writer, docs []docset.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(docs)
}

// WriteFile writes docs to path, replacing any previous file atomically.
func WriteFile(path string, docs []docset.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, docs); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
