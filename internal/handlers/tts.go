package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

type speechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
	Model string `json:"model,omitempty"`
}

// HandleSpeech synthesizes spoken audio for a piece of text and returns the raw audio
// bytes. Voice and model are optional; the configured provider supplies defaults.
func (g Gateway) HandleSpeech(w http.ResponseWriter, r *http.Request) {
	if g.speech == nil {
		writeJSONError(w, "Voice synthesis is not configured", http.StatusServiceUnavailable)
		return
	}

	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, "Text is required", http.StatusBadRequest)
		return
	}

	audio, contentType, err := g.speech.Synthesize(r.Context(), req.Text, req.Voice, req.Model)
	if err != nil {
		g.logger.Error("Speech synthesis failed", slog.String(errLoggerKey, err.Error()))
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(audio); err != nil {
		g.logger.Error("Failed to write audio", slog.String(errLoggerKey, err.Error()))
	}
}

// HandleVoices lists the voices the configured speech provider offers.
func (g Gateway) HandleVoices(w http.ResponseWriter, r *http.Request) {
	if g.speech == nil {
		writeJSONError(w, "Voice synthesis is not configured", http.StatusServiceUnavailable)
		return
	}

	voices, err := g.speech.Voices(r.Context())
	if err != nil {
		g.logger.Error("Failed to list voices", slog.String(errLoggerKey, err.Error()))
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"voices": voices}); err != nil {
		g.logger.Error("Failed to encode voices", slog.String(errLoggerKey, err.Error()))
	}
}
