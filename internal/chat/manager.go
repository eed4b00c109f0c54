package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrSessionNotFound is returned for unknown or evicted session ids.
var ErrSessionNotFound = errors.New("session not found")

const (
	// DefaultIdleTTL is how long a session may sit unused before eviction.
	DefaultIdleTTL = 30 * time.Minute

	janitorInterval = time.Minute
)

// Manager keeps the live sessions of one process in memory.
type Manager struct {
	orch     *Orchestrator
	recorder Recorder
	model    string
	greeting string
	ttl      time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithGreeting sets the message new sessions open with.
func WithGreeting(greeting string) ManagerOption {
	return func(m *Manager) { m.greeting = greeting }
}

// NewManager creates a Manager. recorder may be nil.
func NewManager(orch *Orchestrator, recorder Recorder, model string, opts ...ManagerOption) *Manager {
	m := &Manager{
		orch:     orch,
		recorder: recorder,
		model:    model,
		greeting: DefaultGreeting,
		ttl:      DefaultIdleTTL,
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session seeded with the greeting.
func (m *Manager) Create() *Session {
	s := NewSession(m.orch, m.recorder, m.model, m.greeting)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.logger.Debug("session created", "session", s.ID)
	return s
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete discards a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Evict removes sessions idle since before now minus the TTL and returns
// how many were dropped. Sessions with a turn in flight are kept.
func (m *Manager) Evict(now time.Time) int {
	cutoff := now.Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.State() == StateAwaiting || !s.LastActive().Before(cutoff) {
			continue
		}
		delete(m.sessions, id)
		n++
	}
	return n
}

// Run evicts idle sessions every minute until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Evict(now); n > 0 {
				m.logger.Info("evicted idle sessions", "count", n)
			}
		}
	}
}
