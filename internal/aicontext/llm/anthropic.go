package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider is the production Provider, grounded on
// haowjy-meridian's AnthropicAdapter shape (a thin wrapper converting one
// domain call into the SDK's request/response types) but calling
// github.com/anthropics/anthropic-sdk-go directly rather than through an
// intermediate library, since this module has no other provider to share
// that abstraction with.
type AnthropicProvider struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicProvider builds a provider bound to apiKey. model defaults to
// Claude Haiku, matching the "cheap, fast summary" shape of a per-folder
// context document rather than a user-facing chat response.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaude3_5HaikuLatest
	}
	return &AnthropicProvider{client: client, model: m, maxTokens: 1024}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// GenerateSummary implements Provider (spec.md §4.8). The per-call timeout
// is the caller's responsibility via ctx (default 60s, spec.md §5).
func (p *AnthropicProvider) GenerateSummary(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: generate summary: %w", err)
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic: empty response")
}
