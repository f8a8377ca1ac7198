package llm

import (
	"context"
	"fmt"
)

// NoopProvider is a deterministic, network-free Provider used in tests and
// as the default when a user has not configured AISettings, grounded on
// haowjy-meridian's adapters/lorem_adapter.go placeholder provider.
type NoopProvider struct{}

func (NoopProvider) Name() string { return "noop" }

func (NoopProvider) GenerateSummary(_ context.Context, prompt string) (string, error) {
	return fmt.Sprintf("(summary unavailable: no AI provider configured)\n\n%s", truncate(prompt, 200)), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
