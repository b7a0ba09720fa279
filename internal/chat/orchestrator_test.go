package chat_test

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"testing"

	"counselweb/internal/chat"
	"counselweb/internal/models"
	"counselweb/internal/services"
)

type fakeTransport struct {
	fragments []string
	err       error

	// beforeFragment runs before fragment i is yielded; tests use it to cancel or to
	// attempt a reentrant submit mid-stream.
	beforeFragment func(i int)

	requests []models.GenerationRequest
}

func (f *fakeTransport) Stream(ctx context.Context, req models.GenerationRequest) iter.Seq2[string, error] {
	f.requests = append(f.requests, req)
	return func(yield func(string, error) bool) {
		for i, fragment := range f.fragments {
			if f.beforeFragment != nil {
				f.beforeFragment(i)
			}
			if ctx.Err() != nil {
				return
			}
			if !yield(fragment, nil) {
				return
			}
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.messages = append(n.messages, message)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func assistantContent(t *testing.T, store chat.Store, sessionID string) string {
	t.Helper()

	messages, err := store.Messages(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("failed to read messages: %v", err)
	}
	for _, msg := range messages {
		if msg.Role == models.RoleAssistant {
			return msg.Content
		}
	}
	t.Fatal("no assistant message stored")
	return ""
}

func TestSubmit(t *testing.T) {
	store := services.NewMemory()
	transport := &fakeTransport{fragments: []string{"Hel", "lo, ", "world!"}}
	orch := chat.NewOrchestrator(store, transport, nil, "", "", testLogger())

	var snapshots []string
	reply, err := orch.Submit(context.Background(), "Tell me about my college essay",
		func(msg models.Message) {
			snapshots = append(snapshots, msg.Content)
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reply.Content != "Hello, world!" {
		t.Errorf("expected %q, got %q", "Hello, world!", reply.Content)
	}
	want := []string{"Hel", "Hello, ", "Hello, world!"}
	if len(snapshots) != len(want) {
		t.Fatalf("expected %d callbacks, got %d", len(want), len(snapshots))
	}
	for i := range want {
		if snapshots[i] != want[i] {
			t.Errorf("callback %d: expected %q, got %q", i, want[i], snapshots[i])
		}
	}

	// A session was created and titled from the first user message.
	sessions, err := store.Sessions(context.Background())
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Title != "Tell me about my college essay" {
		t.Errorf("unexpected session title %q", sessions[0].Title)
	}

	// The stored assistant message carries the full reply.
	if got := assistantContent(t, store, sessions[0].ID); got != "Hello, world!" {
		t.Errorf("expected persisted reply, got %q", got)
	}

	// The empty assistant placeholder was not echoed upstream.
	if len(transport.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(transport.requests))
	}
	sent := transport.requests[0].Messages
	if len(sent) != 1 || sent[0].Role != "user" {
		t.Errorf("unexpected upstream payload: %+v", sent)
	}

	if orch.Generating(sessions[0].ID) {
		t.Error("expected generating cleared after submit")
	}
}

func TestSubmitErrorWithoutContent(t *testing.T) {
	store := services.NewMemory()
	notifier := &recordingNotifier{}
	transport := &fakeTransport{err: errors.New("model overloaded")}
	orch := chat.NewOrchestrator(store, transport, notifier, "", "", testLogger())

	reply, err := orch.Submit(context.Background(), "hi", nil)
	if err == nil {
		t.Fatal("expected an error")
	}

	if reply.Content != "Error: model overloaded" {
		t.Errorf("expected the error annotation, got %q", reply.Content)
	}
	sessions, _ := store.Sessions(context.Background())
	if got := assistantContent(t, store, sessions[0].ID); got != "Error: model overloaded" {
		t.Errorf("expected the annotation persisted, got %q", got)
	}
	if len(notifier.messages) != 1 || notifier.messages[0] != "model overloaded" {
		t.Errorf("expected one notification, got %q", notifier.messages)
	}
	if orch.Generating(sessions[0].ID) {
		t.Error("expected generating cleared after error")
	}
}

func TestSubmitErrorKeepsPartialContent(t *testing.T) {
	store := services.NewMemory()
	transport := &fakeTransport{fragments: []string{"partial "}, err: errors.New("connection reset")}
	orch := chat.NewOrchestrator(store, transport, &recordingNotifier{}, "", "", testLogger())

	reply, err := orch.Submit(context.Background(), "hi", nil)
	if err == nil {
		t.Fatal("expected an error")
	}

	if reply.Content != "partial " {
		t.Errorf("expected partial content kept, got %q", reply.Content)
	}
	sessions, _ := store.Sessions(context.Background())
	if got := assistantContent(t, store, sessions[0].ID); got != "partial " {
		t.Errorf("expected partial content persisted, got %q", got)
	}
}

func TestSubmitCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := services.NewMemory()
	notifier := &recordingNotifier{}
	transport := &fakeTransport{fragments: []string{"Hel", "lo, ", "world!"}}
	transport.beforeFragment = func(i int) {
		if i == 1 {
			cancel()
		}
	}
	orch := chat.NewOrchestrator(store, transport, notifier, "", "", testLogger())

	calls := 0
	reply, err := orch.Submit(ctx, "hi", func(models.Message) { calls++ })
	if err != nil {
		t.Fatalf("cancellation must not surface as an error, got %v", err)
	}

	if reply.Content != "Hel" {
		t.Errorf("expected only the first fragment, got %q", reply.Content)
	}
	if calls != 1 {
		t.Errorf("expected 1 callback, got %d", calls)
	}
	if len(notifier.messages) != 0 {
		t.Errorf("expected no notifications, got %q", notifier.messages)
	}

	sessions, _ := store.Sessions(context.Background())
	if orch.Generating(sessions[0].ID) {
		t.Error("expected generating cleared after cancellation")
	}
}

func TestSubmitWhileGenerating(t *testing.T) {
	store := services.NewMemory()
	transport := &fakeTransport{fragments: []string{"a", "b"}}
	orch := chat.NewOrchestrator(store, transport, nil, "", "", testLogger())

	var reentrantErr error
	transport.beforeFragment = func(i int) {
		if i == 1 {
			_, reentrantErr = orch.Submit(context.Background(), "again", nil)
		}
	}

	if _, err := orch.Submit(context.Background(), "hi", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(reentrantErr, chat.ErrGenerating) {
		t.Errorf("expected ErrGenerating, got %v", reentrantErr)
	}
}

func TestSubmitReusesActiveSession(t *testing.T) {
	store := services.NewMemory()
	transport := &fakeTransport{fragments: []string{"ok"}}
	orch := chat.NewOrchestrator(store, transport, nil, "", "", testLogger())

	if _, err := orch.Submit(context.Background(), "first", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := orch.Submit(context.Background(), "second", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sessions, err := store.Sessions(context.Background())
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Title != "first" {
		t.Errorf("expected the title from the first message, got %q", sessions[0].Title)
	}

	messages, err := store.Messages(context.Background(), sessions[0].ID)
	if err != nil {
		t.Fatalf("failed to read messages: %v", err)
	}
	if len(messages) != 4 {
		t.Errorf("expected 4 messages, got %d", len(messages))
	}

	// The second request carries the whole history.
	second := transport.requests[1].Messages
	if len(second) != 3 {
		t.Errorf("expected 3 wire messages, got %+v", second)
	}
}

func TestSubmitForwardsStyleAndKey(t *testing.T) {
	store := services.NewMemory()
	transport := &fakeTransport{fragments: []string{"ok"}}
	orch := chat.NewOrchestrator(store, transport, nil, "simple", "sk-cli", testLogger())

	if _, err := orch.Submit(context.Background(), "hi", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := transport.requests[0]
	if req.Style != "simple" {
		t.Errorf("expected style forwarded, got %q", req.Style)
	}
	if req.APIKey != "sk-cli" {
		t.Errorf("expected api key forwarded, got %q", req.APIKey)
	}
}
