package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Answer paths recorded for each turn.
const (
	PathFAQ      = "faq"
	PathRAG      = "rag"
	PathFallback = "fallback"
	PathRefused  = "refused"
	PathError    = "error"
)

// Interaction is one answered chat turn.
type Interaction struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	SessionID  string    `json:"session_id,omitempty"`
	Query      string    `json:"query"`
	Answer     string    `json:"answer"`
	Path       string    `json:"path"`
	DocIDs     []string  `json:"doc_ids"`
	Model      string    `json:"model,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}
