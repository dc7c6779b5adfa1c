package conversation

import (
	"sync"
	"time"

	"github.com/mateury/next-gen-consultant/internal/domain"
)

// Session is the conversation state owned by one connection.
//
// Only the owning connection writes to a session. The lock lets other
// goroutines, such as the health endpoint, read stats while a turn runs.
type Session struct {
	id        string
	createdAt time.Time
	toolLimit int

	mu      sync.RWMutex
	history []domain.Message
}

// NewSession creates a session whose history starts with the system prompt.
func NewSession(id, systemPrompt string, toolLimit int) *Session {
	return &Session{
		id:        id,
		createdAt: time.Now(),
		toolLimit: toolLimit,
		history:   []domain.Message{domain.SystemMessage(systemPrompt)},
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// ToolIterationLimit returns the maximum number of tool rounds per turn.
func (s *Session) ToolIterationLimit() int { return s.toolLimit }

// History returns a copy of the conversation history.
func (s *Session) History() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of messages in the history.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Stats counts the history messages by role.
func (s *Session) Stats() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CountStats(s.history)
}

// Clear drops every message except the system prompt.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) > 0 && s.history[0].Role == domain.RoleSystem {
		s.history = s.history[:1:1]
		return
	}
	s.history = nil
}

// SetSystemPrompt replaces the system prompt, inserting it when missing.
func (s *Session) SetSystemPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) > 0 && s.history[0].Role == domain.RoleSystem {
		s.history[0].Content = prompt
		return
	}
	s.history = append([]domain.Message{domain.SystemMessage(prompt)}, s.history...)
}

func (s *Session) append(m domain.Message) {
	s.mu.Lock()
	s.history = append(s.history, m)
	s.mu.Unlock()
}
