package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	goopenai "github.com/sashabaranov/go-openai"

	"counselweb/internal/models"
	"counselweb/internal/styles"
)

// OpenAI provides an implementation of the gateway's LLM interface on top of the OpenAI
// chat completion API.
type OpenAI struct {
	model string

	logger *slog.Logger
}

// NewOpenAI creates an OpenAI instance for the given model name. No credential is bound
// at construction; every call carries its own key so a client-supplied credential stays
// scoped to the request it arrived with.
func NewOpenAI(model string, logger *slog.Logger) OpenAI {
	return OpenAI{
		model:  model,
		logger: logger.With(slog.String("module", "openai")),
	}
}

// Chat streams completion text deltas for the given message list. The returned iterator
// yields one string per upstream chunk that carries a textual delta; chunks without one
// are skipped. Cancelling the context ends the sequence without an error.
func (o OpenAI) Chat(
	ctx context.Context,
	apiKey string,
	messages []models.GenMessage,
	params styles.Params,
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		msgs := make([]goopenai.ChatCompletionMessage, len(messages))
		for i, msg := range messages {
			msgs[i] = goopenai.ChatCompletionMessage{
				Role:    msg.Role,
				Content: msg.Content,
			}
		}

		req := goopenai.ChatCompletionRequest{
			Model:            o.model,
			Messages:         msgs,
			Stream:           true,
			Temperature:      params.Temperature,
			MaxTokens:        params.MaxTokens,
			TopP:             params.TopP,
			FrequencyPenalty: params.FrequencyPenalty,
			PresencePenalty:  params.PresencePenalty,
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		// The client is rebuilt per call so the request-scoped credential never
		// outlives the request.
		client := goopenai.NewClient(apiKey)
		stream, err := client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			yield("", fmt.Errorf("error sending request: %w", err))
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				if errors.Is(err, context.Canceled) {
					return
				}
				yield("", fmt.Errorf("error receiving response: %w", err))
				return
			}

			if len(response.Choices) == 0 {
				continue
			}
			delta := response.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}
	}
}
