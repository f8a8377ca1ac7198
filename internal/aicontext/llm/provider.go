// Package llm defines the C8 LLM adapter boundary and its concrete
// providers.
//
// Grounded on haowjy-meridian's backend/internal/service/llm adapter
// family (adapter_factory.go selecting among adapters/anthropic_adapter.go,
// adapters/openrouter_adapter.go, adapters/lorem_adapter.go by provider
// name), reduced here to the one production provider the spec's AISettings
// names plus a no-op test double, since the spec has no multi-provider
// routing requirement beyond "selectable via AISettings.Provider".
package llm

import "context"

// Provider generates a text summary from a prompt. Implementations own
// their own per-call timeout via ctx.
type Provider interface {
	Name() string
	GenerateSummary(ctx context.Context, prompt string) (string, error)
}

// Request/Response-free shape: the domain need here (spec.md §4.8: "a
// summary document") is far narrower than meridian's streaming chat
// protocol, so the adapter boundary is a single call rather than a
// request/response struct pair.

// ProviderAnthropic is the only production provider name AISettings.Provider
// currently selects (spec.md §4.7 "selectable via AISettings.Provider").
const ProviderAnthropic = "anthropic"

// FromSettings resolves the Provider a user's AISettings selects, grounded
// on meridian's adapter_factory.go name-dispatch. An empty or unrecognized
// provider name, or a missing API key, falls back to NoopProvider rather
// than erroring, since AISettings can legitimately describe "AI disabled".
func FromSettings(provider, apiKey, model string) Provider {
	if apiKey == "" {
		return NoopProvider{}
	}
	switch provider {
	case "", ProviderAnthropic:
		return NewAnthropicProvider(apiKey, model)
	default:
		return NoopProvider{}
	}
}
