// Package docset loads the chat widget's document set.
//
// A set is a JSON array of documents served at /chat/index.json. It is read
// once, on first use, and treated as immutable afterwards; a reload produces a
// new slice rather than editing the old one.
package docset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	fetchTimeout = 10 * time.Second
	maxSetSize   = 5 << 20
)

// Document is one retrievable piece of portfolio text.
type Document struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Text  string `json:"text"`
}

// IsURL reports whether source names an http(s) location rather than a file.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetch reads and parses the document set at source, which is either an
// http(s) URL or a file path.
func Fetch(ctx context.Context, source string) ([]Document, error) {
	if source == "" {
		return nil, nil
	}

	var r io.ReadCloser
	if IsURL(source) {
		ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", source, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetching %s: unexpected status %d", source, resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", source, err)
		}
		r = f
	}
	defer r.Close()

	return Parse(io.LimitReader(r, maxSetSize))
}

// Parse decodes a JSON array of documents. Entries without an id or text are
// dropped, and for duplicate ids the first entry wins.
func Parse(r io.Reader) ([]Document, error) {
	var raw []Document
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding document set: %w", err)
	}

	seen := make(map[string]bool, len(raw))
	docs := make([]Document, 0, len(raw))
	for _, d := range raw {
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" || strings.TrimSpace(d.Text) == "" {
			continue
		}
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		docs = append(docs, d)
	}
	return docs, nil
}

// Load is Fetch with failures degraded to an empty set. The error is logged,
// never returned, so a missing index never breaks the chat.
func Load(ctx context.Context, source string, logger *slog.Logger) []Document {
	if logger == nil {
		logger = slog.Default()
	}
	docs, err := Fetch(ctx, source)
	if err != nil {
		logger.Warn("document set unavailable, continuing without context", "source", source, "error", err)
		return []Document{}
	}
	if docs == nil {
		docs = []Document{}
	}
	logger.Debug("document set loaded", "source", source, "documents", len(docs))
	return docs
}
