package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"counselweb/internal/models"
)

// ErrNoMessages is returned when a request is submitted without any messages; no HTTP
// call is made in that case.
var ErrNoMessages = errors.New("request contains no messages")

const (
	styleHeader  = "x-conversation-style"
	apiKeyHeader = "x-openai-api-key"
)

// Client issues streaming chat requests against the gateway and exposes the response
// body as a sequence of byte chunks.
type Client struct {
	endpoint string

	httpClient *http.Client

	logger *slog.Logger
}

// NewClient creates a Client for the given chat endpoint URL. The HTTP client carries no
// overall timeout; the lifetime of a stream is bounded by the caller's context.
func NewClient(endpoint string, logger *slog.Logger) Client {
	return Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		logger:     logger.With(slog.String("module", "transport")),
	}
}

// Send POSTs the serialized request and returns the response body as a lazy sequence of
// byte buffers. A non-success status is turned into an error carrying the most readable
// message the response offers. Cancelling the context stops in-flight reads promptly;
// a user-initiated cancellation ends the sequence without an error.
func (c Client) Send(ctx context.Context, genReq models.GenerationRequest) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if len(genReq.Messages) == 0 {
			yield(nil, ErrNoMessages)
			return
		}

		body, err := json.Marshal(genReq)
		if err != nil {
			yield(nil, fmt.Errorf("error marshaling request: %w", err))
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			yield(nil, fmt.Errorf("error creating request: %w", err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		if genReq.Style != "" {
			req.Header.Set(styleHeader, genReq.Style)
		}
		if genReq.APIKey != "" {
			req.Header.Set(apiKeyHeader, genReq.APIKey)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			yield(nil, fmt.Errorf("error sending request: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			yield(nil, readErrorMessage(resp))
			return
		}
		if resp.Body == http.NoBody {
			yield(nil, errors.New("response has no body"))
			return
		}

		buf := make([]byte, 4096)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !yield(chunk, nil) {
					return
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					c.logger.Debug("Stream finished",
						slog.Duration("elapsed", time.Since(start)))
					return
				}
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return
				}
				yield(nil, fmt.Errorf("error reading response: %w", err))
				return
			}
		}
	}
}

// Stream is Send composed with an incremental UTF-8 decoder, yielding text fragments
// instead of raw bytes.
func (c Client) Stream(ctx context.Context, genReq models.GenerationRequest) iter.Seq2[string, error] {
	return Decode(c.Send(ctx, genReq))
}

// readErrorMessage extracts a human-readable error from a failed gateway response. It
// prefers a JSON `error` or `message` field, then the raw body text, then a generic
// message built from the status code.
func readErrorMessage(resp *http.Response) error {
	fallback := fmt.Errorf("HTTP error: %d", resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return fallback
	}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return errors.New(body.Error)
		}
		if body.Message != "" {
			return errors.New(body.Message)
		}
	}

	if text := strings.TrimSpace(string(raw)); text != "" {
		return errors.New(text)
	}
	return fallback
}
