package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"counselweb/internal/chat"
	"counselweb/internal/models"
	"counselweb/internal/services"
)

func TestTranscript(t *testing.T) {
	ctx := context.Background()
	store := services.NewMemory()

	session, err := store.CreateSession(ctx)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := store.UpdateSessionTitle(ctx, session.ID, "Essay <review>"); err != nil {
		t.Fatalf("failed to rename session: %v", err)
	}

	add := func(role models.Role, content string) {
		t.Helper()
		if _, err := store.AddMessage(ctx, session.ID, models.Message{
			ID: content, Role: role, Content: content,
		}); err != nil {
			t.Fatalf("failed to add message: %v", err)
		}
	}
	add(models.RoleUser, "Can you review my <essay>?")
	add(models.RoleAssistant, "Sure. **First**, tighten the opening.")
	add(models.RoleAssistant, "")

	page, err := chat.Transcript(ctx, store, session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(page, "<title>Essay &lt;review&gt;</title>") {
		t.Error("expected the escaped session title")
	}
	if !strings.Contains(page, "Can you review my &lt;essay&gt;?") {
		t.Error("expected the user message escaped, not rendered")
	}
	if !strings.Contains(page, "<strong>First</strong>") {
		t.Error("expected the assistant message rendered as markdown")
	}
	if !strings.Contains(page, ">You<") || !strings.Contains(page, ">Assistant<") {
		t.Error("expected role labels")
	}
	// The empty placeholder produces no message block.
	if got := strings.Count(page, `class="message"`); got != 2 {
		t.Errorf("expected 2 message blocks, got %d", got)
	}
}

func TestTranscriptMissingSession(t *testing.T) {
	store := services.NewMemory()
	if _, err := chat.Transcript(context.Background(), store, "nope"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
