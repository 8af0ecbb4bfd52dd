// Package config manages Collig's persisted settings: the on-disk layout
// under ~/.collig, the config.json key/value store, and the typed view the
// rest of the application reads.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Well-known config keys.
const (
	KeyProvider          = "LLM_PROVIDER"
	KeyModel             = "LLM_MODEL"
	KeyFallbacks         = "LLM_FALLBACKS"
	KeyLogLevel          = "LOG_LEVEL"
	KeyToolTimeout       = "TOOL_TIMEOUT"
	KeyClassifier        = "SKILL_CLASSIFIER"
	KeyTokenEstimator    = "TOKEN_ESTIMATOR"
	KeyMaxToolIterations = "MAX_TOOL_ITERATIONS"
	// KeyGitAllowedRoots limits the git skill to these directories.
	KeyGitAllowedRoots = "GIT_ALLOWED_ROOTS"
)

// Classifier modes.
const (
	ClassifierLLM     = "llm"
	ClassifierKeyword = "keyword"
	ClassifierOff     = "off"
)

// Token estimators.
const (
	EstimatorChars    = "chars"
	EstimatorTiktoken = "tiktoken"
)

// Settings is the typed view over the key/value store.
type Settings struct {
	Provider          string
	Model             string
	Fallbacks         []string
	LogLevel          string
	ToolTimeout       time.Duration
	ClassifierMode    string
	TokenEstimator    string
	MaxToolIterations int
	GitAllowedRoots   []string
}

// Defaults returns Settings with sensible defaults applied.
func Defaults() Settings {
	return Settings{
		Provider:          "openai",
		Model:             "gpt-4o",
		LogLevel:          "info",
		ToolTimeout:       30 * time.Second,
		ClassifierMode:    ClassifierLLM,
		TokenEstimator:    EstimatorChars,
		MaxToolIterations: 10,
	}
}

// Getter is the read side of Store.
type Getter interface {
	Get(key string) (string, bool)
}

// Load builds Settings from g, keeping defaults for absent keys.
// Malformed numeric or duration values are reported by Validate and
// otherwise fall back to the default.
func Load(g Getter) Settings {
	s := Defaults()
	if v, ok := g.Get(KeyProvider); ok {
		s.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := g.Get(KeyModel); ok {
		s.Model = strings.TrimSpace(v)
	}
	if v, ok := g.Get(KeyFallbacks); ok {
		s.Fallbacks = splitList(v)
	}
	if v, ok := g.Get(KeyLogLevel); ok {
		s.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := g.Get(KeyToolTimeout); ok {
		if d, err := parseDuration(v); err == nil && d > 0 {
			s.ToolTimeout = d
		}
	}
	if v, ok := g.Get(KeyClassifier); ok {
		s.ClassifierMode = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := g.Get(KeyTokenEstimator); ok {
		s.TokenEstimator = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := g.Get(KeyMaxToolIterations); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			s.MaxToolIterations = n
		}
	}
	if v, ok := g.Get(KeyGitAllowedRoots); ok {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				s.GitAllowedRoots = append(s.GitAllowedRoots, p)
			}
		}
	}
	return s
}

// parseDuration accepts Go durations ("45s") and bare seconds ("45").
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
