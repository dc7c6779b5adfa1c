// Package session keeps the table of live conversation sessions.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mateury/next-gen-consultant/internal/conversation"
	"github.com/mateury/next-gen-consultant/internal/domain"
)

// Final is the terminal state of a deleted session.
type Final struct {
	SessionID string
	CreatedAt time.Time
	History   []domain.Message
	Stats     domain.Stats
}

// Manager owns one Session per live connection.
type Manager struct {
	systemPrompt string
	toolLimit    int
	logger       *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*conversation.Session
}

// NewManager creates a manager seeding new sessions with systemPrompt.
func NewManager(systemPrompt string, toolLimit int, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		systemPrompt: systemPrompt,
		toolLimit:    toolLimit,
		logger:       logger.With(zap.String("component", "session")),
		sessions:     make(map[string]*conversation.Session),
	}
}

// NewID returns a fresh session id.
func NewID() string {
	return "sess_" + uuid.NewString()
}

// Create allocates a session. It fails only when id is already taken.
func (m *Manager) Create(id string) (*conversation.Session, error) {
	m.mu.Lock()
	if _, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		return nil, domain.ErrSessionExists
	}
	s := conversation.NewSession(id, m.systemPrompt, m.toolLimit)
	m.sessions[id] = s
	active := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info("session created", zap.String("session_id", id), zap.Int("active_sessions", active))
	return s, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*conversation.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete removes the session and returns its final state. A second delete of
// the same id reports false.
func (m *Manager) Delete(id string) (Final, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	active := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return Final{}, false
	}
	final := Final{SessionID: id, CreatedAt: s.CreatedAt(), History: s.History(), Stats: s.Stats()}
	m.logger.Info("session deleted",
		zap.String("session_id", id),
		zap.Duration("age", time.Since(final.CreatedAt)),
		zap.Int("messages", final.Stats.Total),
		zap.Int("active_sessions", active))
	return final, true
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// AllStats returns the message stats of every live session.
func (m *Manager) AllStats() map[string]domain.Stats {
	m.mu.RLock()
	sessions := make([]*conversation.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	stats := make(map[string]domain.Stats, len(sessions))
	for _, s := range sessions {
		stats[s.ID()] = s.Stats()
	}
	return stats
}

// IDs returns the ids of live sessions in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
