package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"counselweb/internal/models"
	"counselweb/internal/styles"
)

// Ollama provides an implementation of the gateway's LLM interface for a local Ollama
// server. It ignores the per-request credential since Ollama performs no authentication.
type Ollama struct {
	host  string
	model string

	client *api.Client
}

// NewOllama creates an Ollama instance with the specified host URL and model name. The
// host parameter must be a valid URL pointing to an Ollama server; an invalid host URL
// makes the function panic.
func NewOllama(host, model string) Ollama {
	u, err := url.Parse(host)
	if err != nil {
		panic(err)
	}

	return Ollama{
		host:   host,
		model:  model,
		client: api.NewClient(u, &http.Client{}),
	}
}

// Chat streams responses from the Ollama model, yielding one text fragment per response
// chunk. The sampling parameters are mapped onto Ollama's option names.
func (o Ollama) Chat(
	ctx context.Context,
	_ string,
	messages []models.GenMessage,
	params styles.Params,
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		msgs := make([]api.Message, len(messages))
		for i, msg := range messages {
			msgs[i] = api.Message{
				Role:    msg.Role,
				Content: msg.Content,
			}
		}

		t := true
		req := api.ChatRequest{
			Model:    o.model,
			Messages: msgs,
			Stream:   &t,
			Options: map[string]any{
				"temperature":       params.Temperature,
				"num_predict":       params.MaxTokens,
				"top_p":             params.TopP,
				"frequency_penalty": params.FrequencyPenalty,
				"presence_penalty":  params.PresencePenalty,
			},
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		if err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
			if res.Message.Content == "" {
				return nil
			}
			if !yield(res.Message.Content, nil) {
				cancel()
			}
			return nil
		}); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			yield("", fmt.Errorf("error sending request: %w", err))
		}
	}
}
