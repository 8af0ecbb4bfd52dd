package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mapGetter map[string]string

func (m mapGetter) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok && v != ""
}

func TestDefaults(t *testing.T) {
	s := Defaults()
	assert.Equal(t, "openai", s.Provider)
	assert.Equal(t, "gpt-4o", s.Model)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, 30*time.Second, s.ToolTimeout)
	assert.Equal(t, ClassifierLLM, s.ClassifierMode)
	assert.Equal(t, EstimatorChars, s.TokenEstimator)
	assert.Equal(t, 10, s.MaxToolIterations)
	assert.Empty(t, s.Fallbacks)
}

func TestLoad(t *testing.T) {
	s := Load(mapGetter{
		KeyProvider:          " DeepSeek ",
		KeyModel:             "deepseek-chat",
		KeyFallbacks:         "openai, llama,,",
		KeyLogLevel:          "DEBUG",
		KeyToolTimeout:       "45",
		KeyClassifier:        "keyword",
		KeyTokenEstimator:    "tiktoken",
		KeyMaxToolIterations: "4",
		KeyGitAllowedRoots:   " /src/Work , ~/code,",
	})

	assert.Equal(t, "deepseek", s.Provider)
	assert.Equal(t, "deepseek-chat", s.Model)
	assert.Equal(t, []string{"openai", "llama"}, s.Fallbacks)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, 45*time.Second, s.ToolTimeout)
	assert.Equal(t, ClassifierKeyword, s.ClassifierMode)
	assert.Equal(t, EstimatorTiktoken, s.TokenEstimator)
	assert.Equal(t, 4, s.MaxToolIterations)
	assert.Equal(t, []string{"/src/Work", "~/code"}, s.GitAllowedRoots)
}

func TestLoad_MalformedKeepsDefaults(t *testing.T) {
	s := Load(mapGetter{
		KeyToolTimeout:       "soon",
		KeyMaxToolIterations: "-2",
	})
	assert.Equal(t, 30*time.Second, s.ToolTimeout)
	assert.Equal(t, 10, s.MaxToolIterations)
}

func TestLoad_DurationString(t *testing.T) {
	s := Load(mapGetter{KeyToolTimeout: "1m30s"})
	assert.Equal(t, 90*time.Second, s.ToolTimeout)
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Message: "bad"}
	assert.Equal(t, "config: bad", err.Error())
}
