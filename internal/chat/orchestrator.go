// Package chat wires the streaming transport, the response accumulator, and the session
// store into the submit/cancel flow a chat front end drives.
package chat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"counselweb/internal/models"
	"counselweb/internal/stream"
)

// ErrGenerating is returned when a submit arrives while a generation for the same
// session is still in flight.
var ErrGenerating = errors.New("a response is already being generated")

// Store defines the persistence contract for sessions and messages. The bolt-backed
// store serves production use; the in-memory store serves tests.
type Store interface {
	CreateSession(ctx context.Context) (models.ChatSession, error)
	Sessions(ctx context.Context) ([]models.ChatSession, error)
	UpdateSessionTitle(ctx context.Context, id, title string) error
	DeleteSession(ctx context.Context, id string) error
	CurrentSessionID(ctx context.Context) (string, error)
	SetCurrentSession(ctx context.Context, id string) error

	Messages(ctx context.Context, sessionID string) ([]models.Message, error)
	AddMessage(ctx context.Context, sessionID string, message models.Message) (string, error)
	ReplaceMessage(ctx context.Context, sessionID string, message models.Message) error
	RemoveMessage(ctx context.Context, sessionID, messageID string) error
}

// Transport streams the gateway's reply for a generation request as text fragments.
type Transport interface {
	Stream(ctx context.Context, req models.GenerationRequest) iter.Seq2[string, error]
}

// Notifier receives user-visible failure messages. Cancellations are never reported
// through it.
type Notifier interface {
	Notify(message string)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(string) {}

// Orchestrator drives one generation at a time per session: it appends the user turn
// and an empty assistant turn, streams the reply into the assistant message, and
// arbitrates errors and cancellation back to the UI.
type Orchestrator struct {
	store     Store
	transport Transport
	notifier  Notifier

	style  string
	apiKey string

	accumulators map[string]*stream.Accumulator

	logger *slog.Logger
}

// NewOrchestrator creates an Orchestrator. Style and apiKey are forwarded with every
// generation request; both may be empty, in which case the gateway's defaults apply.
func NewOrchestrator(store Store, transport Transport, notifier Notifier, style, apiKey string, logger *slog.Logger) *Orchestrator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Orchestrator{
		store:        store,
		transport:    transport,
		notifier:     notifier,
		style:        style,
		apiKey:       apiKey,
		accumulators: map[string]*stream.Accumulator{},
		logger:       logger.With(slog.String("module", "orchestrator")),
	}
}

// Generating reports whether a generation is in flight for the session.
func (o *Orchestrator) Generating(sessionID string) bool {
	acc, ok := o.accumulators[sessionID]
	return ok && acc.Generating()
}

// Submit sends the user's text and streams the assistant's reply into a new message,
// invoking onFragment after every appended fragment. It returns the final assistant
// message. While a generation is in flight for the session, further submits fail with
// ErrGenerating. Cancelling the context stops the stream, keeps whatever content has
// arrived, and is not treated as an error.
func (o *Orchestrator) Submit(ctx context.Context, text string, onFragment func(models.Message)) (models.Message, error) {
	sessionID, err := o.ensureSession(ctx, text)
	if err != nil {
		return models.Message{}, err
	}

	if o.Generating(sessionID) {
		return models.Message{}, ErrGenerating
	}

	userMsg := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	}
	if _, err := o.store.AddMessage(ctx, sessionID, userMsg); err != nil {
		return models.Message{}, fmt.Errorf("failed to add user message: %w", err)
	}

	assistantMsg := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleAssistant,
		CreatedAt: time.Now(),
	}
	assistantID, err := o.store.AddMessage(ctx, sessionID, assistantMsg)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to add assistant message: %w", err)
	}
	assistantMsg.ID = assistantID

	messages, err := o.store.Messages(ctx, sessionID)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to get messages: %w", err)
	}

	req := models.GenerationRequest{
		Messages: models.GenMessages(messages),
		Style:    o.style,
		APIKey:   o.apiKey,
	}

	acc := &stream.Accumulator{}
	o.accumulators[sessionID] = acc
	defer delete(o.accumulators, sessionID)

	runErr := acc.Run(o.transport.Stream(ctx, req), &assistantMsg, func(msg models.Message) {
		if err := o.store.ReplaceMessage(ctx, sessionID, msg); err != nil {
			o.logger.Error("Failed to persist fragment",
				slog.String("messageID", msg.ID),
				slog.String("err", err.Error()))
		}
		if onFragment != nil {
			onFragment(msg)
		}
	})

	if runErr != nil {
		o.logger.Error("Generation failed", slog.String("err", runErr.Error()))
		// An assistant message must never sit around blank: annotate it when nothing
		// arrived, keep the partial content when something did.
		if assistantMsg.Content == "" {
			assistantMsg.Content = "Error: " + runErr.Error()
			if err := o.store.ReplaceMessage(context.WithoutCancel(ctx), sessionID, assistantMsg); err != nil {
				o.logger.Error("Failed to record error message", slog.String("err", err.Error()))
			}
		}
		o.notifier.Notify(runErr.Error())
		return assistantMsg, runErr
	}

	if ctx.Err() != nil {
		// User-initiated abort: keep the partial content, report nothing.
		o.logger.Debug("Generation cancelled", slog.String("sessionID", sessionID))
		return assistantMsg, nil
	}

	return assistantMsg, nil
}

// ensureSession returns the active session id, creating a session when none is active.
// A freshly created session is titled from the first user message.
func (o *Orchestrator) ensureSession(ctx context.Context, text string) (string, error) {
	sessionID, err := o.store.CurrentSessionID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get current session: %w", err)
	}
	if sessionID != "" {
		return sessionID, nil
	}

	session, err := o.store.CreateSession(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	if err := o.store.UpdateSessionTitle(ctx, session.ID, models.SessionTitle(text)); err != nil {
		return "", fmt.Errorf("failed to title session: %w", err)
	}
	return session.ID, nil
}

// NewSession explicitly starts a fresh conversation and makes it active.
func (o *Orchestrator) NewSession(ctx context.Context) (models.ChatSession, error) {
	return o.store.CreateSession(ctx)
}

// DeleteSession removes a session; the store moves the active reference to another
// session or clears it.
func (o *Orchestrator) DeleteSession(ctx context.Context, id string) error {
	return o.store.DeleteSession(ctx, id)
}
