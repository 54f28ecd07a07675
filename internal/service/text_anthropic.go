package service

import (
	"context"

	"github.com/DevDeskHQ/devdesk_api/internal/config"
	"github.com/DevDeskHQ/devdesk_api/pkg/anthropic"
)

// AnthropicGenerator adapts the Anthropic client to the TextGenerator
// interface used by the document service.
type AnthropicGenerator struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicGenerator constructs a generator from provider config.
func NewAnthropicGenerator(cfg *config.AnthropicConfig) *AnthropicGenerator {
	return &AnthropicGenerator{
		client:    anthropic.NewClient(cfg.APIKey, cfg.BaseURL),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (g *AnthropicGenerator) request(system, prompt string) anthropic.MessagesRequest {
	return anthropic.MessagesRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    system,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	}
}

// Generate performs a one-shot completion.
func (g *AnthropicGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	return g.client.Complete(ctx, g.request(system, prompt))
}

// GenerateStream streams text fragments as the provider produces them.
func (g *AnthropicGenerator) GenerateStream(ctx context.Context, system, prompt string) (<-chan string, <-chan error) {
	return g.client.Stream(ctx, g.request(system, prompt))
}
