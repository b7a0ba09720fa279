package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"counselweb/internal/models"
	"counselweb/internal/styles"
)

type chatRequest struct {
	// Messages stays raw until validated so a non-array value can be rejected with a
	// clear message instead of a generic decode error.
	Messages         json.RawMessage `json:"messages"`
	UseSpecialPrompt *bool           `json:"useSpecialPrompt"`
}

// HandleChat processes a chat generation request and re-streams the upstream reply as a
// raw chunked text/plain body. The conversation style comes from the x-conversation-style
// header, falling back to the useSpecialPrompt body flag; the credential comes from the
// x-openai-api-key header, falling back to the server default.
//
// Error responses are JSON `{"error": string}`: 400 for malformed input or an unknown
// style, 500 for a missing credential or an upstream failure before the first byte.
// Failures after streaming has begun append an error marker to the stream instead.
func (g Gateway) HandleChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		g.logger.Error("Invalid JSON body", slog.String(errLoggerKey, err.Error()))
		writeJSONError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if len(body.Messages) == 0 {
		writeJSONError(w, "No messages provided in request", http.StatusBadRequest)
		return
	}
	var messages []models.GenMessage
	if err := json.Unmarshal(body.Messages, &messages); err != nil {
		writeJSONError(w, "Messages are required and must be an array", http.StatusBadRequest)
		return
	}
	if len(messages) == 0 {
		writeJSONError(w, "No messages provided in request", http.StatusBadRequest)
		return
	}

	style, err := resolveStyle(r.Header.Get(styleHeader), body.UseSpecialPrompt)
	if err != nil {
		g.logger.Error("Unknown conversation style", slog.String(errLoggerKey, err.Error()))
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	cfg, err := styles.Lookup(style)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	apiKey := r.Header.Get(apiKeyHeader)
	if apiKey == "" {
		apiKey = g.apiKey
	}
	if apiKey == "" {
		g.logger.Error("No API key configured")
		writeJSONError(w, "OpenAI API key is not configured", http.StatusInternalServerError)
		return
	}

	upstream := models.WithSystemPrompt(cfg.SystemPrompt, messages)

	g.logger.Debug("Processing chat request",
		slog.Int("messages", len(messages)),
		slog.String("style", string(style)))

	ctx, cancel := context.WithTimeout(r.Context(), g.timeout)
	defer cancel()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, "Streaming is not supported", http.StatusInternalServerError)
		return
	}

	// These take effect on the first write; fragments must reach the client as they are
	// produced, not batched by an intermediary.
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Accel-Buffering", "no")

	wrote := false
	for fragment, err := range g.llm.Chat(ctx, apiKey, upstream, cfg.Params) {
		if err != nil {
			g.handleUpstreamError(w, flusher, err, wrote)
			return
		}
		if fragment == "" {
			continue
		}
		if _, err := io.WriteString(w, fragment); err != nil {
			g.logger.Error("Failed to write fragment", slog.String(errLoggerKey, err.Error()))
			return
		}
		wrote = true
		flusher.Flush()
	}

	if !wrote {
		// An empty reply still ends as a successful, empty stream.
		w.WriteHeader(http.StatusOK)
	}
}

// handleUpstreamError surfaces an upstream failure. Before the first byte it becomes a
// 500 with a message that distinguishes credential problems from other upstream errors;
// after streaming has begun the headers are gone, so an error marker is appended to the
// stream instead of silently truncating it.
func (g Gateway) handleUpstreamError(w http.ResponseWriter, flusher http.Flusher, err error, wrote bool) {
	g.logger.Error("Upstream error", slog.String(errLoggerKey, err.Error()))
	g.notify("Upstream error: " + err.Error())

	if !wrote {
		message := "Upstream error: " + err.Error()
		if isCredentialError(err) {
			message = "OpenAI API key is missing or invalid"
		}
		writeJSONError(w, message, http.StatusInternalServerError)
		return
	}

	fmt.Fprintf(w, "\n\nStreaming Error: %s", err.Error())
	flusher.Flush()
}

// resolveStyle picks the conversation style. The header wins when present; otherwise an
// explicit useSpecialPrompt=false asks for a reply without a system prompt, and the
// default style applies in every remaining case.
func resolveStyle(header string, useSpecialPrompt *bool) (styles.Style, error) {
	if header != "" {
		return styles.Parse(header)
	}
	if useSpecialPrompt != nil && !*useSpecialPrompt {
		return styles.StylePlain, nil
	}
	return styles.StyleCounselor, nil
}

func isCredentialError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "API key") || strings.Contains(msg, "401")
}
