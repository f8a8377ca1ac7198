package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromSettingsEmptyAPIKeyFallsBackToNoop(t *testing.T) {
	p := FromSettings("anthropic", "", "claude-3-5-haiku-latest")
	assert.Equal(t, "noop", p.Name())
}

func TestFromSettingsAnthropicProviderName(t *testing.T) {
	p := FromSettings("anthropic", "sk-ant-test1234", "")
	assert.Equal(t, "anthropic", p.Name())
}

func TestFromSettingsEmptyProviderNameDefaultsToAnthropic(t *testing.T) {
	p := FromSettings("", "sk-ant-test1234", "")
	assert.Equal(t, "anthropic", p.Name())
}

func TestFromSettingsUnknownProviderFallsBackToNoop(t *testing.T) {
	p := FromSettings("some-unsupported-vendor", "sk-ant-test1234", "")
	assert.Equal(t, "noop", p.Name())
}
