package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

type OpenAIAnnotator struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnnotator talks to baseURL when set, otherwise to api.openai.com.
func NewOpenAIAnnotator(apiKey, model, baseURL string) *OpenAIAnnotator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	slog.Info("Initializing OpenAI client", "model", model)
	return &OpenAIAnnotator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (o *OpenAIAnnotator) Annotate(ctx context.Context, prompt string) (string, error) {
	slog.Debug("Requesting annotation from OpenAI", "model", o.model)
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	slog.Debug("Received response from OpenAI", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
