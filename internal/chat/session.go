package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/folio/internal/storage"
)

var (
	// ErrBusy is returned when a message is submitted while the previous
	// turn of the same session is still in flight.
	ErrBusy = errors.New("a reply is still being generated")

	// ErrEmptyMessage is returned for blank submissions.
	ErrEmptyMessage = errors.New("message is empty")
)

// State is the turn state of a session.
type State string

const (
	StateIdle     State = "idle"
	StateAwaiting State = "awaiting-answer"
	StateAnswered State = "answered"
	StateErrored  State = "errored"
)

// Recorder persists completed turns.
type Recorder interface {
	SaveInteraction(ctx context.Context, i storage.Interaction) error
}

// Session is one conversation. Its message list only grows, and at most one
// turn is in flight at a time.
type Session struct {
	ID string

	orch     *Orchestrator
	recorder Recorder
	model    string
	logger   *slog.Logger

	mu         sync.Mutex
	state      State
	outcome    State
	messages   []Message
	lastActive time.Time
}

// NewSession creates a session seeded with greeting. recorder may be nil.
func NewSession(orch *Orchestrator, recorder Recorder, model, greeting string) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.New().String(),
		orch:       orch,
		recorder:   recorder,
		model:      model,
		logger:     slog.Default(),
		state:      StateIdle,
		messages:   []Message{{Role: RoleAssistant, Content: greeting, Timestamp: now}},
		lastActive: now,
	}
}

// Submit appends content as a user message, runs one turn and appends and
// returns the assistant reply. It returns ErrBusy without touching the
// conversation when a turn is already in flight.
func (s *Session) Submit(ctx context.Context, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.state == StateAwaiting {
		s.mu.Unlock()
		return Message{}, ErrBusy
	}
	s.state = StateAwaiting
	s.messages = append(s.messages, Message{Role: RoleUser, Content: content, Timestamp: time.Now()})
	s.lastActive = time.Now()
	s.mu.Unlock()

	reply := s.orch.Answer(ctx, content)
	msg := Message{Role: RoleAssistant, Content: reply.Content, Timestamp: time.Now()}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	if reply.Path == storage.PathError {
		s.outcome = StateErrored
	} else {
		s.outcome = StateAnswered
	}
	s.state = StateIdle
	s.lastActive = time.Now()
	s.mu.Unlock()

	s.record(ctx, content, reply)
	return msg, nil
}

func (s *Session) record(ctx context.Context, query string, reply Reply) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.SaveInteraction(context.WithoutCancel(ctx), storage.Interaction{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		SessionID:  s.ID,
		Query:      query,
		Answer:     reply.Content,
		Path:       reply.Path,
		DocIDs:     reply.DocIDs,
		Model:      s.model,
		DurationMS: reply.Duration.Milliseconds(),
	})
	if err != nil {
		s.logger.Warn("failed to record interaction", "session", s.ID, "error", err)
	}
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// State returns the current turn state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastOutcome reports how the most recent turn ended: StateAnswered,
// StateErrored, or StateIdle when no turn has run.
func (s *Session) LastOutcome() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == "" {
		return StateIdle
	}
	return s.outcome
}

// LastActive returns the time of the last submission or reply.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
