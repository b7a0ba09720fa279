package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"counselweb/internal/models"
)

// ElevenLabs synthesizes speech through the ElevenLabs API. It implements the same
// Speech interface as OpenAISpeech and is selected by server configuration.
type ElevenLabs struct {
	apiKey  string
	voiceID string
	modelID string
	baseURL string

	client *http.Client

	logger *slog.Logger
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

type elevenLabsError struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
	Message string `json:"message"`
}

const (
	elevenLabsAPIEndpoint = "https://api.elevenlabs.io/v1"

	defaultElevenLabsVoice = "EXAVITQu4vr4xnSDxMaL"
	defaultElevenLabsModel = "eleven_multilingual_v2"
)

// NewElevenLabs creates an ElevenLabs instance with the given API key and default voice
// and model IDs. Empty IDs fall back to the Sarah voice with the multilingual v2 model.
func NewElevenLabs(apiKey, voiceID, modelID string, logger *slog.Logger) ElevenLabs {
	if voiceID == "" {
		voiceID = defaultElevenLabsVoice
	}
	if modelID == "" {
		modelID = defaultElevenLabsModel
	}
	return ElevenLabs{
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: modelID,
		baseURL: elevenLabsAPIEndpoint,
		client:  &http.Client{},
		logger:  logger.With(slog.String("module", "elevenlabs")),
	}
}

// Synthesize converts text to audio bytes using the configured voice settings.
func (e ElevenLabs) Synthesize(ctx context.Context, text, voice, model string) ([]byte, string, error) {
	if voice == "" {
		voice = e.voiceID
	}
	if model == "" {
		model = e.modelID
	}

	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			UseSpeakerBoost: true,
			Speed:           1.0,
		},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, "", fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/text-to-speech/"+voice, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", e.readError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("error reading audio: %w", err)
	}

	e.logger.Debug("Synthesized speech",
		slog.String("voice", voice),
		slog.Int("audioBytes", len(audio)))

	return audio, "audio/mpeg", nil
}

// Voices lists the voices available to the configured API key.
func (e ElevenLabs) Voices(ctx context.Context) ([]models.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, e.readError(resp)
	}

	var body struct {
		Voices []struct {
			VoiceID string `json:"voice_id"`
			Name    string `json:"name"`
		} `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("error decoding voices: %w", err)
	}

	voices := make([]models.Voice, len(body.Voices))
	for i, v := range body.Voices {
		voices[i] = models.Voice{ID: v.VoiceID, Name: v.Name}
	}
	return voices, nil
}

func (e ElevenLabs) readError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("elevenlabs status %d", resp.StatusCode)
	}

	var apiErr elevenLabsError
	if err := json.Unmarshal(raw, &apiErr); err == nil {
		if apiErr.Detail.Message != "" {
			return fmt.Errorf("elevenlabs error %s: %s", apiErr.Detail.Status, apiErr.Detail.Message)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("elevenlabs error: %s", apiErr.Message)
		}
	}
	return fmt.Errorf("elevenlabs status %d: %s", resp.StatusCode, string(raw))
}
