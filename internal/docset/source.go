package docset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Source is a lazily loaded, reloadable document set shared by all chat
// sessions of a process.
type Source struct {
	location string
	logger   *slog.Logger

	mu     sync.RWMutex
	docs   []Document
	loaded bool

	// loadMu serializes loads so concurrent first callers fetch once.
	loadMu sync.Mutex
}

// NewSource returns a Source for location. Nothing is read until Docs is
// first called.
func NewSource(location string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{location: location, logger: logger}
}

// Static returns a Source that always yields docs.
func Static(docs []Document) *Source {
	return &Source{docs: docs, loaded: true, logger: slog.Default()}
}

// Location returns the URL or path the source reads from.
func (s *Source) Location() string { return s.location }

// Docs returns the current set, loading it on the first call. The returned
// slice must not be modified.
func (s *Source) Docs(ctx context.Context) []Document {
	s.mu.RLock()
	if s.loaded {
		docs := s.docs
		s.mu.RUnlock()
		return docs
	}
	s.mu.RUnlock()

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		s.store(Load(ctx, s.location, s.logger))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs
}

// Loaded reports whether the set has been read yet.
func (s *Source) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Reload reads the set again and swaps it in. On failure the previous set
// is kept and the error returned.
func (s *Source) Reload(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	docs, err := Fetch(ctx, s.location)
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []Document{}
	}
	s.store(docs)
	s.logger.Info("document set reloaded", "source", s.location, "documents", len(docs))
	return nil
}

func (s *Source) store(docs []Document) {
	s.mu.Lock()
	s.docs = docs
	s.loaded = true
	s.mu.Unlock()
}

// Watch reloads a file source whenever it is written, created or renamed
// into place, until ctx is done. onChange, if set, runs after each
// successful reload. URL sources cannot be watched.
func (s *Source) Watch(ctx context.Context, onChange func([]Document)) error {
	if s.location == "" || IsURL(s.location) {
		return fmt.Errorf("cannot watch %q: only file sources can be watched", s.location)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	// Watch the directory: editors often replace the file instead of
	// writing it in place, which drops a watch on the file itself.
	target := filepath.Clean(s.location)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if err := s.Reload(ctx); err != nil {
					s.logger.Warn("document set reload failed, keeping previous set", "source", s.location, "error", err)
					continue
				}
				if onChange != nil {
					onChange(s.Docs(ctx))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("document watcher error", "error", err)
			}
		}
	}()
	return nil
}
