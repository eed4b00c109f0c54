package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("applied %v, want two migrations", versions)
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
		}
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	for _, idx := range []string{"idx_interactions_created", "idx_interactions_session"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying index %s: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %s not found", idx)
		}
	}
}

func TestSaveAndGetInteraction(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	in := Interaction{
		ID:         "i-1",
		CreatedAt:  now,
		SessionID:  "s-1",
		Query:      "what projects has he built",
		Answer:     "A portfolio site and a chat widget.",
		Path:       PathRAG,
		DocIDs:     []string{"projects", "about"},
		Model:      "gpt2",
		DurationMS: 420,
	}
	if err := s.SaveInteraction(ctx, in); err != nil {
		t.Fatalf("SaveInteraction: %v", err)
	}

	got, err := s.GetInteraction(ctx, "i-1")
	if err != nil {
		t.Fatalf("GetInteraction: %v", err)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
	if got.Query != in.Query || got.Answer != in.Answer || got.Path != PathRAG || got.SessionID != "s-1" {
		t.Errorf("got %+v", got)
	}
	if len(got.DocIDs) != 2 || got.DocIDs[0] != "projects" {
		t.Errorf("DocIDs = %v", got.DocIDs)
	}
	if got.DurationMS != 420 || got.Model != "gpt2" {
		t.Errorf("DurationMS/Model = %d/%q", got.DurationMS, got.Model)
	}
}

func TestSaveInteraction_NilDocIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveInteraction(ctx, Interaction{ID: "faq-1", Query: "what is his name", Answer: "x", Path: PathFAQ}); err != nil {
		t.Fatalf("SaveInteraction: %v", err)
	}
	got, err := s.GetInteraction(ctx, "faq-1")
	if err != nil {
		t.Fatalf("GetInteraction: %v", err)
	}
	if got.DocIDs == nil || len(got.DocIDs) != 0 {
		t.Errorf("DocIDs = %#v, want empty slice", got.DocIDs)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt was not defaulted")
	}
}

func TestGetInteractionNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetInteraction(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListInteractions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := range 5 {
		session := "a"
		if i%2 == 1 {
			session = "b"
		}
		err := s.SaveInteraction(ctx, Interaction{
			ID:        fmt.Sprintf("i-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
			SessionID: session,
			Query:     "q",
			Answer:    "a",
			Path:      PathFallback,
		})
		if err != nil {
			t.Fatalf("SaveInteraction: %v", err)
		}
	}

	all, err := s.ListInteractions(ctx, "", 3)
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d, want 3", len(all))
	}
	if all[0].ID != "i-4" || all[2].ID != "i-2" {
		t.Errorf("order = %s,%s,%s; want newest first", all[0].ID, all[1].ID, all[2].ID)
	}

	onlyB, err := s.ListInteractions(ctx, "b", 10)
	if err != nil {
		t.Fatalf("ListInteractions(b): %v", err)
	}
	if len(onlyB) != 2 {
		t.Errorf("session b has %d interactions, want 2", len(onlyB))
	}
}

func TestCountInteractions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	paths := []string{PathFAQ, PathFAQ, PathRAG, PathError}
	for i, p := range paths {
		s.SaveInteraction(ctx, Interaction{ID: fmt.Sprint(i), Query: "q", Answer: "a", Path: p})
	}
	counts, err := s.CountInteractions(ctx)
	if err != nil {
		t.Fatalf("CountInteractions: %v", err)
	}
	if counts[PathFAQ] != 2 || counts[PathRAG] != 1 || counts[PathError] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
