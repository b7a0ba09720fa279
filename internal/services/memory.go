package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"counselweb/internal/models"
)

// Memory implements the session Store interface entirely in memory. It backs tests and
// throwaway sessions; nothing survives the process.
type Memory struct {
	sessions  []models.ChatSession
	messages  map[string][]models.Message
	currentID string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		messages: map[string][]models.Message{},
	}
}

// CreateSession stores a new empty session and makes it the active one.
func (m *Memory) CreateSession(context.Context) (models.ChatSession, error) {
	now := time.Now()
	session := models.ChatSession{
		ID:        uuid.New().String(),
		Title:     "New Conversation",
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.sessions = append(m.sessions, session)
	m.messages[session.ID] = nil
	m.currentID = session.ID
	return session, nil
}

// Sessions returns all sessions, most recent first.
func (m *Memory) Sessions(context.Context) ([]models.ChatSession, error) {
	sessions := slices.Clone(m.sessions)
	slices.Reverse(sessions)
	for i := range sessions {
		sessions[i].CreatedAt = models.NormalizeTime(sessions[i].CreatedAt)
		sessions[i].UpdatedAt = models.NormalizeTime(sessions[i].UpdatedAt)
	}
	return sessions, nil
}

// UpdateSessionTitle renames a session.
func (m *Memory) UpdateSessionTitle(_ context.Context, id, title string) error {
	idx := m.sessionIndex(id)
	if idx == -1 {
		return fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	m.sessions[idx].Title = title
	m.sessions[idx].UpdatedAt = time.Now()
	return nil
}

// DeleteSession removes a session and its messages, moving the active reference to the
// most recent remaining session or clearing it.
func (m *Memory) DeleteSession(_ context.Context, id string) error {
	idx := m.sessionIndex(id)
	if idx == -1 {
		return fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	m.sessions = slices.Delete(m.sessions, idx, idx+1)
	delete(m.messages, id)

	if m.currentID == id {
		m.currentID = ""
		if len(m.sessions) > 0 {
			m.currentID = m.sessions[len(m.sessions)-1].ID
		}
	}
	return nil
}

// CurrentSessionID returns the active session's id, or the empty string.
func (m *Memory) CurrentSessionID(context.Context) (string, error) {
	return m.currentID, nil
}

// SetCurrentSession marks an existing session as active.
func (m *Memory) SetCurrentSession(_ context.Context, id string) error {
	if m.sessionIndex(id) == -1 {
		return fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	m.currentID = id
	return nil
}

// Messages returns a session's messages in insertion order.
func (m *Memory) Messages(_ context.Context, sessionID string) ([]models.Message, error) {
	msgs, ok := m.messages[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
	}
	out := slices.Clone(msgs)
	for i := range out {
		out[i].CreatedAt = models.NormalizeTime(out[i].CreatedAt)
	}
	return out, nil
}

// AddMessage appends a message and returns its stored ID.
func (m *Memory) AddMessage(_ context.Context, sessionID string, message models.Message) (string, error) {
	if _, ok := m.messages[sessionID]; !ok {
		return "", fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
	}
	message.CreatedAt = models.NormalizeTime(message.CreatedAt)
	m.messages[sessionID] = append(m.messages[sessionID], message)
	m.touch(sessionID)
	return message.ID, nil
}

// ReplaceMessage overwrites an existing message, matched by ID.
func (m *Memory) ReplaceMessage(_ context.Context, sessionID string, message models.Message) error {
	msgs, ok := m.messages[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
	}
	idx := slices.IndexFunc(msgs, func(msg models.Message) bool { return msg.ID == message.ID })
	if idx == -1 {
		return fmt.Errorf("message %s: %w", message.ID, models.ErrNotFound)
	}
	message.CreatedAt = models.NormalizeTime(message.CreatedAt)
	msgs[idx] = message
	m.touch(sessionID)
	return nil
}

// RemoveMessage deletes a message from a session.
func (m *Memory) RemoveMessage(_ context.Context, sessionID, messageID string) error {
	msgs, ok := m.messages[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
	}
	idx := slices.IndexFunc(msgs, func(msg models.Message) bool { return msg.ID == messageID })
	if idx == -1 {
		return fmt.Errorf("message %s: %w", messageID, models.ErrNotFound)
	}
	m.messages[sessionID] = slices.Delete(msgs, idx, idx+1)
	m.touch(sessionID)
	return nil
}

func (m *Memory) sessionIndex(id string) int {
	return slices.IndexFunc(m.sessions, func(s models.ChatSession) bool { return s.ID == id })
}

func (m *Memory) touch(id string) {
	if idx := m.sessionIndex(id); idx != -1 {
		m.sessions[idx].UpdatedAt = time.Now()
	}
}
