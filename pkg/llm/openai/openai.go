// Package openai implements pkg/llm's Generator on the OpenAI chat completions API.
package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/papernoteco/folio/pkg/llm"
)

// DefaultModel is the default OpenAI chat model.
const DefaultModel = "gpt-4o-mini"

// Generator wraps the OpenAI chat completions API.
type Generator struct {
	client *openai.Client
	model  string
}

// Config holds configuration for the OpenAI generator.
type Config struct {
	// APIKey is the OpenAI API key. Required.
	APIKey string

	// BaseURL overrides the API base URL, e.g. for a compatible gateway.
	BaseURL string

	// Model is the chat model name. Defaults to DefaultModel.
	Model string
}

// NewGenerator creates a generator backed by the OpenAI chat completions API.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", llm.ErrGeneration)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Generate invokes the model with the prompt and returns the generated text.
func (g *Generator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   int(opts.MaxTokens),
		Temperature: float32(opts.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrGeneration, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", llm.ErrGeneration)
	}

	return resp.Choices[0].Message.Content, nil
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	return nil
}

// Ensure Generator implements llm.Generator
var _ llm.Generator = (*Generator)(nil)
