package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	goopenai "github.com/sashabaranov/go-openai"

	"counselweb/internal/models"
)

// OpenAISpeech synthesizes spoken audio for assistant replies via the OpenAI
// text-to-speech API.
type OpenAISpeech struct {
	apiKey string
	model  string
	voice  string

	logger *slog.Logger
}

// NewOpenAISpeech creates an OpenAISpeech instance. Model and voice are defaults; a
// request may override both. Empty values fall back to tts-1 with the alloy voice.
func NewOpenAISpeech(apiKey, model, voice string, logger *slog.Logger) OpenAISpeech {
	if model == "" {
		model = string(goopenai.TTSModel1)
	}
	if voice == "" {
		voice = string(goopenai.VoiceAlloy)
	}
	return OpenAISpeech{
		apiKey: apiKey,
		model:  model,
		voice:  voice,
		logger: logger.With(slog.String("module", "openai-tts")),
	}
}

// Synthesize converts text to audio bytes, returning the bytes and their content type.
func (o OpenAISpeech) Synthesize(ctx context.Context, text, voice, model string) ([]byte, string, error) {
	if voice == "" {
		voice = o.voice
	}
	if model == "" {
		model = o.model
	}

	client := goopenai.NewClient(o.apiKey)
	resp, err := client.CreateSpeech(ctx, goopenai.CreateSpeechRequest{
		Model: goopenai.SpeechModel(model),
		Input: text,
		Voice: goopenai.SpeechVoice(voice),
	})
	if err != nil {
		return nil, "", fmt.Errorf("error sending speech request: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, "", fmt.Errorf("error reading speech response: %w", err)
	}

	o.logger.Debug("Synthesized speech",
		slog.Int("textLen", len(text)),
		slog.Int("audioBytes", len(audio)))

	return audio, "audio/mpeg", nil
}

// Voices lists the fixed set of voices the OpenAI speech API offers.
func (OpenAISpeech) Voices(context.Context) ([]models.Voice, error) {
	ids := []goopenai.SpeechVoice{
		goopenai.VoiceAlloy,
		goopenai.VoiceEcho,
		goopenai.VoiceFable,
		goopenai.VoiceOnyx,
		goopenai.VoiceNova,
		goopenai.VoiceShimmer,
	}
	voices := make([]models.Voice, len(ids))
	for i, id := range ids {
		voices[i] = models.Voice{ID: string(id), Name: string(id)}
	}
	return voices, nil
}
