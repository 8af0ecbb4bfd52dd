package llm

import "strings"

// Provider names.
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderClaude   = "claude"
	ProviderLlama    = "llama"
)

// ModelInfo is one catalogue entry shown by the provider listing.
type ModelInfo struct {
	ID    string
	Label string
}

// ProviderSpec describes a supported provider.
type ProviderSpec struct {
	Name         string
	DisplayName  string
	DefaultModel string
	// SummaryModel is the cheaper model used for history summaries.
	SummaryModel string
	// KeyName is the config key holding the credential. Empty when the
	// provider needs none.
	KeyName string
	Models  []ModelInfo
}

var providerSpecs = []ProviderSpec{
	{
		Name:         ProviderDeepSeek,
		DisplayName:  "deepseek",
		DefaultModel: "deepseek-chat",
		SummaryModel: "deepseek-chat",
		KeyName:      "DEEPSEEK_API_KEY",
		Models: []ModelInfo{
			{ID: "deepseek-chat", Label: "V3"},
			{ID: "deepseek-reasoner", Label: "R1"},
		},
	},
	{
		Name:         ProviderOpenAI,
		DisplayName:  "openai",
		DefaultModel: "gpt-4o",
		SummaryModel: "gpt-4o-mini",
		KeyName:      "OPENAI_API_KEY",
		Models: []ModelInfo{
			{ID: "gpt-4o"},
			{ID: "gpt-4o-mini"},
			{ID: "gpt-3.5-turbo"},
		},
	},
	{
		Name:         ProviderClaude,
		DisplayName:  "claude (Anthropic)",
		DefaultModel: "claude-sonnet-4-5",
		SummaryModel: "claude-haiku-4-5",
		KeyName:      "ANTHROPIC_API_KEY",
		Models: []ModelInfo{
			{ID: "claude-sonnet-4-5"},
			{ID: "claude-opus-4-1"},
			{ID: "claude-haiku-4-5"},
		},
	},
	{
		Name:         ProviderLlama,
		DisplayName:  "llama (via Ollama)",
		DefaultModel: "llama3.1",
	},
}

var providerAliases = map[string]string{
	"ollama":    ProviderLlama,
	"anthropic": ProviderClaude,
}

// Providers returns the provider table in display order.
func Providers() []ProviderSpec {
	out := make([]ProviderSpec, len(providerSpecs))
	copy(out, providerSpecs)
	return out
}

// ProviderNames returns canonical names and aliases, for validation.
func ProviderNames() []string {
	names := make([]string, 0, len(providerSpecs)+len(providerAliases))
	for _, p := range providerSpecs {
		names = append(names, p.Name)
	}
	for alias := range providerAliases {
		names = append(names, alias)
	}
	return names
}

// Canonical lowercases name and resolves aliases. The second result is
// false when the provider is unknown.
func Canonical(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if target, ok := providerAliases[name]; ok {
		name = target
	}
	_, ok := Spec(name)
	return name, ok
}

// Spec returns the table entry for a canonical provider name.
func Spec(name string) (ProviderSpec, bool) {
	for _, p := range providerSpecs {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderSpec{}, false
}

// MissingKey returns the name of the credential provider needs but lookup
// cannot supply, or "" when nothing is missing.
func MissingKey(provider string, lookup func(string) string) string {
	name, _ := Canonical(provider)
	spec, ok := Spec(name)
	if !ok || spec.KeyName == "" {
		return ""
	}
	if strings.TrimSpace(lookup(spec.KeyName)) == "" {
		return spec.KeyName
	}
	return ""
}
