package handlers

import (
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/tmaxmax/go-sse"

	"counselweb/internal/models"
	"counselweb/internal/styles"
)

// LLM represents the upstream chat-completion collaborator. It accepts a request-scoped
// credential, a message list, and sampling parameters, returning an iterator that
// yields text deltas and potential errors.
type LLM interface {
	Chat(ctx context.Context, apiKey string, messages []models.GenMessage, params styles.Params) iter.Seq2[string, error]
}

// Speech represents the text-to-speech collaborator: text in, audio bytes out, plus the
// content type of the audio.
type Speech interface {
	Synthesize(ctx context.Context, text, voice, model string) ([]byte, string, error)
	Voices(ctx context.Context) ([]models.Voice, error)
}

// Gateway mediates between chat clients and the upstream completion API, re-streaming
// replies as raw text chunks and publishing UI notifications over server-sent events.
type Gateway struct {
	sseSrv *sse.Server

	llm    LLM
	speech Speech

	// apiKey is the server-configured default credential; a request header overrides it
	// for that request only.
	apiKey string

	timeout time.Duration

	logger *slog.Logger
}

const (
	styleHeader  = "x-conversation-style"
	apiKeyHeader = "x-openai-api-key"

	notificationsSSETopic = "notifications"

	errLoggerKey = "err"

	// defaultTimeout bounds the total duration of one streaming request.
	defaultTimeout = 30 * time.Second
)

var toastSSEType = sse.Type("toast")

// NewGateway creates a Gateway around the given collaborators. The speech collaborator
// may be nil, in which case the voice endpoints report the feature as unconfigured.
func NewGateway(llm LLM, speech Speech, apiKey string, logger *slog.Logger) Gateway {
	return Gateway{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      []string{sse.DefaultTopic, notificationsSSETopic},
				}, true
			},
		},
		llm:     llm,
		speech:  speech,
		apiKey:  apiKey,
		timeout: defaultTimeout,
		logger:  logger.With(slog.String("module", "gateway")),
	}
}

// HandleEvents serves the server-sent-events notification stream.
func (g Gateway) HandleEvents(w http.ResponseWriter, r *http.Request) {
	g.sseSrv.ServeHTTP(w, r)
}

// Shutdown gracefully terminates the SSE server, broadcasting a close message and
// waiting up to 5 seconds for connections to drain.
func (g Gateway) Shutdown(ctx context.Context) error {
	e := &sse.Message{Type: sse.Type("close")}
	e.AppendData("bye")
	_ = g.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return g.sseSrv.Shutdown(ctx)
}

// notify publishes a toast notification to subscribed UI clients.
func (g Gateway) notify(message string) {
	msg := sse.Message{Type: toastSSEType}
	msg.AppendData(message)
	if err := g.sseSrv.Publish(&msg, notificationsSSETopic); err != nil {
		g.logger.Error("Failed to publish notification", slog.String(errLoggerKey, err.Error()))
	}
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
