// Package store provides message-store and session-registry implementations
// for the chat pipeline. The in-memory store is the canonical implementation;
// the file store wraps it with JSON snapshot persistence.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"agentsplaybook/internal/logger"
	"agentsplaybook/pkg/playbooktypes"
)

// MemoryStore is a mutex-guarded in-memory implementation of both the
// MessageStore and SessionRegistry interfaces. All session mutations happen
// under one lock, which makes the archive-and-supersede rollover atomic with
// respect to concurrent triggers and keeps continuity reads consistent with
// concurrent appends.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*playbooktypes.ChatSession
	messages map[string][]playbooktypes.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*playbooktypes.ChatSession),
		messages: make(map[string][]playbooktypes.Message),
	}
}

// NewSession builds a fresh active session for the given target.
func NewSession(userID string, mode playbooktypes.SessionMode, workflowID, miniPromptID string) *playbooktypes.ChatSession {
	now := time.Now()
	return &playbooktypes.ChatSession{
		ID:           uuid.New().String(),
		UserID:       userID,
		Mode:         mode,
		WorkflowID:   workflowID,
		MiniPromptID: miniPromptID,
		TotalTokens:  0,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// CreateSession stores a new session, enforcing at most one active session
// per (user, mode, target).
func (s *MemoryStore) CreateSession(_ context.Context, session *playbooktypes.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == "" {
		return fmt.Errorf("session ID is required")
	}
	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session with ID '%s' already exists", session.ID)
	}
	if !session.Archived() {
		if active := s.findActive(session.UserID, session.Mode, session.Target()); active != nil {
			return fmt.Errorf("active session '%s' already exists for this target", active.ID)
		}
	}

	s.sessions[session.ID] = session
	return nil
}

// GetSession returns a copy of the session with the given ID.
func (s *MemoryStore) GetSession(_ context.Context, id string) (*playbooktypes.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, fmt.Errorf("session with ID '%s' not found", id)
	}

	copied := *session
	return &copied, nil
}

// ActiveSession returns the non-archived session for the given (user, mode,
// target) combination, or nil when none exists.
func (s *MemoryStore) ActiveSession(_ context.Context, userID string, mode playbooktypes.SessionMode, target string) (*playbooktypes.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if active := s.findActive(userID, mode, target); active != nil {
		copied := *active
		return &copied, nil
	}
	return nil, nil
}

// findActive must be called with the lock held.
func (s *MemoryStore) findActive(userID string, mode playbooktypes.SessionMode, target string) *playbooktypes.ChatSession {
	for _, session := range s.sessions {
		if session.Archived() {
			continue
		}
		if session.UserID == userID && session.Mode == mode && session.Target() == target {
			return session
		}
	}
	return nil
}

// ArchiveAndCreateSuccessor atomically archives the given session and creates
// a fresh zero-token successor for the same target. The successor starts with
// no continuity state: the provider conversation is not transferable across
// the rollover boundary. A second concurrent trigger observes the archival
// and returns the existing successor instead of creating a duplicate.
func (s *MemoryStore) ArchiveAndCreateSuccessor(_ context.Context, chatID string) (*playbooktypes.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[chatID]
	if !exists {
		return nil, fmt.Errorf("session with ID '%s' not found", chatID)
	}

	if session.Archived() {
		// A concurrent rollover already superseded this session.
		successor, exists := s.sessions[session.SuccessorID]
		if !exists {
			return nil, fmt.Errorf("session '%s' is archived but its successor '%s' is missing", chatID, session.SuccessorID)
		}
		copied := *successor
		return &copied, nil
	}

	now := time.Now()
	successor := &playbooktypes.ChatSession{
		ID:           uuid.New().String(),
		UserID:       session.UserID,
		Mode:         session.Mode,
		WorkflowID:   session.WorkflowID,
		MiniPromptID: session.MiniPromptID,
		TotalTokens:  0,
		CreatedAt:    now,
		LastActivity: now,
	}

	session.ArchivedAt = &now
	session.SuccessorID = successor.ID
	s.sessions[successor.ID] = successor

	logger.StoreOperation("rollover", chatID, "successor", successor.ID)

	copied := *successor
	return &copied, nil
}

// AppendMessage persists a new turn and bumps the session's cumulative token
// count and activity timestamp. Appending to an archived session fails.
func (s *MemoryStore) AppendMessage(_ context.Context, msg *playbooktypes.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[msg.SessionID]
	if !exists {
		return fmt.Errorf("session with ID '%s' not found", msg.SessionID)
	}
	if session.Archived() {
		return fmt.Errorf("session '%s' is archived and read-only", msg.SessionID)
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], *msg)
	session.TotalTokens += msg.Tokens
	session.LastActivity = msg.CreatedAt

	return nil
}

// MessageHistory returns all turns of a session in creation order.
func (s *MemoryStore) MessageHistory(_ context.Context, chatID string) ([]playbooktypes.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.sessions[chatID]; !exists {
		return nil, fmt.Errorf("session with ID '%s' not found", chatID)
	}

	history := s.messages[chatID]
	copied := make([]playbooktypes.Message, len(history))
	copy(copied, history)
	return copied, nil
}

// LastResponseID returns the continuation identifier of the most recent turn
// that carries one, or "" when no turn does.
func (s *MemoryStore) LastResponseID(_ context.Context, chatID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.sessions[chatID]; !exists {
		return "", fmt.Errorf("session with ID '%s' not found", chatID)
	}

	history := s.messages[chatID]
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ResponseID != "" {
			return history[i].ResponseID, nil
		}
	}
	return "", nil
}

// LastToolResults returns the trailing run of tool-result turns from the most
// recent exchange, in creation order, or nil when the conversation does not
// end with tool activity.
func (s *MemoryStore) LastToolResults(_ context.Context, chatID string) ([]playbooktypes.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.sessions[chatID]; !exists {
		return nil, fmt.Errorf("session with ID '%s' not found", chatID)
	}

	history := s.messages[chatID]
	var results []playbooktypes.Message
	for i := len(history) - 1; i >= 0; i-- {
		kind := history[i].Payload.Kind
		if kind != playbooktypes.PayloadToolResult && kind != playbooktypes.PayloadToolCall {
			break
		}
		if kind == playbooktypes.PayloadToolResult {
			results = append([]playbooktypes.Message{history[i]}, results...)
		}
	}
	return results, nil
}

// TotalTokens returns the session's cumulative token usage.
func (s *MemoryStore) TotalTokens(_ context.Context, chatID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[chatID]
	if !exists {
		return 0, fmt.Errorf("session with ID '%s' not found", chatID)
	}
	return session.TotalTokens, nil
}

// ListSessions returns copies of all stored sessions.
func (s *MemoryStore) ListSessions(_ context.Context) ([]*playbooktypes.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*playbooktypes.ChatSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		copied := *session
		sessions = append(sessions, &copied)
	}
	return sessions, nil
}

// DeleteSession removes a session and its messages.
func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return fmt.Errorf("session with ID '%s' not found", id)
	}

	delete(s.sessions, id)
	delete(s.messages, id)
	return nil
}

// snapshot returns a copy of a session and its messages for persistence.
// Must be called without the lock held.
func (s *MemoryStore) snapshot(id string) (*playbooktypes.ChatSession, []playbooktypes.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, nil, fmt.Errorf("session with ID '%s' not found", id)
	}

	copied := *session
	history := make([]playbooktypes.Message, len(s.messages[id]))
	copy(history, s.messages[id])
	return &copied, history, nil
}

// restore loads a persisted session and its messages, bypassing the
// one-active-session check (snapshots are trusted).
func (s *MemoryStore) restore(session *playbooktypes.ChatSession, history []playbooktypes.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session
	s.messages[session.ID] = history
}
