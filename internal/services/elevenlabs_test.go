package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestElevenLabsSynthesize(t *testing.T) {
	var gotPath, gotKey string
	var gotBody elevenLabsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	e := NewElevenLabs("el-key", "", "", discardLogger())
	e.baseURL = srv.URL

	audio, contentType, err := e.Synthesize(context.Background(), "hello there", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(audio) != "mp3-bytes" {
		t.Errorf("unexpected audio payload: %q", audio)
	}
	if contentType != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %q", contentType)
	}
	if gotPath != "/text-to-speech/"+defaultElevenLabsVoice {
		t.Errorf("expected the default voice in the path, got %q", gotPath)
	}
	if gotKey != "el-key" {
		t.Errorf("expected api key header, got %q", gotKey)
	}
	if gotBody.Text != "hello there" || gotBody.ModelID != defaultElevenLabsModel {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
}

func TestElevenLabsSynthesizeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail": {"status": "invalid_api_key", "message": "key is bad"}}`)
	}))
	defer srv.Close()

	e := NewElevenLabs("bad-key", "", "", discardLogger())
	e.baseURL = srv.URL

	_, _, err := e.Synthesize(context.Background(), "hello", "", "")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "key is bad") {
		t.Errorf("expected the API's message, got %q", err.Error())
	}
}

func TestElevenLabsVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		io.WriteString(w, `{"voices": [{"voice_id": "v1", "name": "Sarah"}, {"voice_id": "v2", "name": "George"}]}`)
	}))
	defer srv.Close()

	e := NewElevenLabs("el-key", "", "", discardLogger())
	e.baseURL = srv.URL

	voices, err := e.Voices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(voices) != 2 || voices[0].ID != "v1" || voices[1].Name != "George" {
		t.Errorf("unexpected voices: %+v", voices)
	}
}
