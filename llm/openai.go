package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type openAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
	seed      int
}

func NewOpenAIClient(opts Options) Client {
	cfg := openai.DefaultConfig(opts.OpenAIAPIKey)
	if opts.OpenAIBaseURL != "" {
		cfg.BaseURL = opts.OpenAIBaseURL
	}

	return &openAIClient{
		client:    openai.NewClientWithConfig(cfg),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		seed:      opts.Seed,
	}
}

func (c *openAIClient) Generate(ctx context.Context, prompt string) (GenerationResult, error) {
	seed := c.seed
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Seed:        &seed,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return GenerationResult{}, fmt.Errorf("%w: create openai chat completion: %v", ErrModelUnavailable, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return GenerationResult{}, ErrEmptyGeneration
	}

	return TextResult(resp.Choices[0].Message.Content), nil
}
