package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by session stores when the addressed session or message does
// not exist.
var ErrNotFound = errors.New("not found")

// Role represents the role of a message participant.
type Role string

const (
	// RoleUser represents a message written by the person driving the conversation.
	RoleUser Role = "user"
	// RoleAssistant represents a reply produced by the upstream model. The content of an
	// assistant message starts empty and grows while the reply is being streamed.
	RoleAssistant Role = "assistant"
	// RoleSystem represents the instruction message prepended by the gateway.
	RoleSystem Role = "system"
)

// Message represents an individual turn within a chat session. CreatedAt is normalized
// at every storage boundary, so callers can rely on it being a valid time.
type Message struct {
	ID        string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// ChatSession represents a conversation container. Messages are stored separately and
// keyed by the session ID; UpdatedAt is refreshed whenever one of them changes.
type ChatSession struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GenMessage is one `{role, content}` pair of the wire payload sent to the gateway, and
// from the gateway to the upstream completion API.
type GenMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationRequest is the outbound chat payload. Style and APIKey travel in request
// headers rather than the JSON body, so they carry no json tags.
type GenerationRequest struct {
	Messages []GenMessage `json:"messages"`
	// UseSpecialPrompt is kept for clients that predate the style header; false asks the
	// gateway for a reply without any system prompt.
	UseSpecialPrompt *bool `json:"useSpecialPrompt,omitempty"`

	Style  string `json:"-"`
	APIKey string `json:"-"`
}

// Voice is a selectable text-to-speech voice.
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NormalizeTime coerces an invalid or missing timestamp to the current time. Stored data
// may carry zero or garbage timestamps (the original client persisted stringly-typed
// dates); those must never propagate past a read/write boundary.
func NormalizeTime(t time.Time) time.Time {
	if t.IsZero() || t.Year() < 1970 {
		return time.Now()
	}
	return t
}

// GenMessages converts stored messages into the wire representation, dropping empty
// assistant placeholders so an in-flight reply is never echoed back upstream.
func GenMessages(messages []Message) []GenMessage {
	out := make([]GenMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleAssistant && msg.Content == "" {
			continue
		}
		out = append(out, GenMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}

// WithSystemPrompt prepends a system message to a wire message list. An empty prompt
// leaves the list untouched, which is how a no-special-prompt request is expressed.
func WithSystemPrompt(prompt string, messages []GenMessage) []GenMessage {
	if prompt == "" {
		return messages
	}
	out := make([]GenMessage, 0, len(messages)+1)
	out = append(out, GenMessage{Role: string(RoleSystem), Content: prompt})
	return append(out, messages...)
}

// SessionTitle derives a session title from the first user message, truncated on rune
// boundaries.
func SessionTitle(content string) string {
	const maxTitle = 30

	runes := []rune(content)
	if len(runes) == 0 {
		return "New Conversation"
	}
	if len(runes) <= maxTitle {
		return content
	}
	return string(runes[:maxTitle]) + "..."
}
