package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"

	"github.com/tmaxmax/go-sse"

	"counselweb/internal/models"
	"counselweb/internal/styles"
)

// OpenRouter streams chat completions from the OpenRouter API. The wire format is
// OpenAI-compatible server-sent events, so it serves as a drop-in alternative upstream
// for models OpenAI doesn't host.
type OpenRouter struct {
	apiKey string
	model  string

	client *http.Client

	logger *slog.Logger
}

type openRouterChatRequest struct {
	Model            string              `json:"model"`
	Messages         []models.GenMessage `json:"messages"`
	Stream           bool                `json:"stream"`
	Temperature      float32             `json:"temperature,omitempty"`
	MaxTokens        int                 `json:"max_tokens,omitempty"`
	TopP             float32             `json:"top_p,omitempty"`
	FrequencyPenalty float32             `json:"frequency_penalty,omitempty"`
	PresencePenalty  float32             `json:"presence_penalty,omitempty"`
}

type openRouterStreamingResponse struct {
	Choices []openRouterStreamingChoice `json:"choices"`
}

type openRouterStreamingChoice struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
}

const openRouterAPIEndpoint = "https://openrouter.ai/api/v1"

// NewOpenRouter creates an OpenRouter instance with the given default API key and model
// name.
func NewOpenRouter(apiKey, model string, logger *slog.Logger) OpenRouter {
	return OpenRouter{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{},
		logger: logger.With(slog.String("module", "openrouter")),
	}
}

// Chat streams a completion for the given messages as text deltas. An apiKey overrides
// the configured credential for this call only; cancelling the context ends the stream
// without an error.
func (o OpenRouter) Chat(
	ctx context.Context,
	apiKey string,
	messages []models.GenMessage,
	params styles.Params,
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if apiKey == "" {
			apiKey = o.apiKey
		}

		reqBody := openRouterChatRequest{
			Model:            o.model,
			Messages:         messages,
			Stream:           true,
			Temperature:      params.Temperature,
			MaxTokens:        params.MaxTokens,
			TopP:             params.TopP,
			FrequencyPenalty: params.FrequencyPenalty,
			PresencePenalty:  params.PresencePenalty,
		}
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			yield("", fmt.Errorf("error marshaling request: %w", err))
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			openRouterAPIEndpoint+"/chat/completions", bytes.NewBuffer(jsonBody))
		if err != nil {
			yield("", fmt.Errorf("error creating request: %w", err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := o.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			yield("", fmt.Errorf("error sending request: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			yield("", fmt.Errorf("openrouter status %d", resp.StatusCode))
			return
		}

		for ev, err := range sse.Read(resp.Body, nil) {
			if err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return
				}
				yield("", fmt.Errorf("error reading response: %w", err))
				return
			}

			if ev.Data == "[DONE]" {
				break
			}

			var res openRouterStreamingResponse
			if err := json.Unmarshal([]byte(ev.Data), &res); err != nil {
				yield("", fmt.Errorf("error unmarshaling response: %w", err))
				return
			}
			if len(res.Choices) == 0 {
				continue
			}

			if delta := res.Choices[0].Delta.Content; delta != "" {
				if !yield(delta, nil) {
					return
				}
			}
		}
	}
}
