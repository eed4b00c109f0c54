package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// timeLayout is fixed width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// SaveInteraction appends one turn to the interaction log.
func (s *Store) SaveInteraction(ctx context.Context, i Interaction) error {
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now()
	}
	docIDs := i.DocIDs
	if docIDs == nil {
		docIDs = []string{}
	}
	ids, err := json.Marshal(docIDs)
	if err != nil {
		return fmt.Errorf("encoding doc ids: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interactions (id, created_at, session_id, query, answer, path, doc_ids, model, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.CreatedAt.UTC().Format(timeLayout), i.SessionID, i.Query, i.Answer,
		i.Path, string(ids), i.Model, i.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("inserting interaction %s: %w", i.ID, err)
	}
	return nil
}

const interactionColumns = `id, created_at, session_id, query, answer, path, doc_ids, model, duration_ms`

// GetInteraction returns the interaction with the given id, or ErrNotFound.
func (s *Store) GetInteraction(ctx context.Context, id string) (Interaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+interactionColumns+` FROM interactions WHERE id = ?`, id)
	i, err := scanInteraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Interaction{}, ErrNotFound
	}
	return i, err
}

// ListInteractions returns the most recent interactions, newest first.
// A non-empty sessionID restricts the list to one session.
func (s *Store) ListInteractions(ctx context.Context, sessionID string, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + interactionColumns + ` FROM interactions`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}
	defer rows.Close()

	results := []Interaction{}
	for rows.Next() {
		i, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, i)
	}
	return results, rows.Err()
}

// CountInteractions returns the number of logged turns per answer path.
func (s *Store) CountInteractions(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, COUNT(*) FROM interactions GROUP BY path`)
	if err != nil {
		return nil, fmt.Errorf("counting interactions: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var path string
		var n int
		if err := rows.Scan(&path, &n); err != nil {
			return nil, err
		}
		counts[path] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInteraction(r rowScanner) (Interaction, error) {
	var i Interaction
	var createdAt, docIDs string
	if err := r.Scan(&i.ID, &createdAt, &i.SessionID, &i.Query, &i.Answer, &i.Path, &docIDs, &i.Model, &i.DurationMS); err != nil {
		return Interaction{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Interaction{}, fmt.Errorf("parsing created_at: %w", err)
	}
	i.CreatedAt = t
	if err := json.Unmarshal([]byte(docIDs), &i.DocIDs); err != nil {
		return Interaction{}, fmt.Errorf("decoding doc ids: %w", err)
	}
	return i, nil
}
