package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProviders = []string{"openai", "deepseek", "claude", "llama", "ollama", "anthropic"}

func TestValidate_Empty(t *testing.T) {
	assert.Empty(t, Validate(mapGetter{}, testProviders))
}

func TestValidate_Valid(t *testing.T) {
	issues := Validate(mapGetter{
		KeyProvider:          "claude",
		KeyFallbacks:         "openai,ollama",
		KeyLogLevel:          "warn",
		KeyToolTimeout:       "10s",
		KeyClassifier:        "off",
		KeyTokenEstimator:    "chars",
		KeyMaxToolIterations: "3",
	}, testProviders)
	assert.Empty(t, issues)
}

func TestValidate_UnknownProvider(t *testing.T) {
	issues := Validate(mapGetter{KeyProvider: "gemini"}, testProviders)
	require.Len(t, issues, 1)
	assert.Equal(t, KeyProvider, issues[0].Path)
	assert.Contains(t, issues[0].String(), `"gemini"`)
}

func TestValidate_ProviderCheckSkippedWithoutRegistry(t *testing.T) {
	assert.Empty(t, Validate(mapGetter{KeyProvider: "anything"}, nil))
}

func TestValidate_BadFallback(t *testing.T) {
	issues := Validate(mapGetter{KeyFallbacks: "openai,nope"}, testProviders)
	require.Len(t, issues, 1)
	assert.Equal(t, KeyFallbacks, issues[0].Path)
}

func TestValidate_BadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{KeyLogLevel, "loud"},
		{KeyToolTimeout, "never"},
		{KeyToolTimeout, "0"},
		{KeyClassifier, "magic"},
		{KeyTokenEstimator, "words"},
		{KeyMaxToolIterations, "zero"},
		{KeyMaxToolIterations, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			issues := Validate(mapGetter{tt.key: tt.value}, testProviders)
			require.Len(t, issues, 1)
			assert.Equal(t, tt.key, issues[0].Path)
		})
	}
}
