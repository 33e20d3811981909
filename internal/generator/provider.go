package generator

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// openaiProvider adapts an OpenAI-compatible chat endpoint to the
// chatProvider interface.
type openaiProvider struct {
	api   *openai.Client
	model string
}

func newOpenAIProvider(apiKey, baseURL, modelName string) *openaiProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openaiProvider{
		api:   openai.NewClientWithConfig(cfg),
		model: modelName,
	}
}

// Complete sends the instruction as a single user message and returns the
// raw completion text.
func (p *openaiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a quiz question generator for a university learning platform."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("provider API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
