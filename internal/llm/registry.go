package llm

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/soyeahso/collig/internal/logging"
)

// Registry manages LLM provider clients and resolves provider names to clients.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client // provider name → client
	aliases map[string]string // alias → provider name
	log     *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		aliases: make(map[string]string),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Debug().Str("provider", name).Msg("registered LLM provider")
}

// Alias maps an alternate name to a provider.
// e.g., Alias("ollama", "llama") means "ollama" resolves to the "llama" provider.
func (r *Registry) Alias(alias, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[alias] = provider
}

// Resolve returns the Client for the given provider reference.
// Resolution order: exact provider name → alias. A provider that is not
// registered (typically for lack of a credential) wraps ErrUnavailable.
func (r *Registry) Resolve(provider string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider = strings.ToLower(strings.TrimSpace(provider))
	if c, ok := r.clients[provider]; ok {
		return c, nil
	}
	if target, ok := r.aliases[provider]; ok {
		if c, ok := r.clients[target]; ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no LLM provider for %q: %w", provider, ErrUnavailable)
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// NewRegistryFromConfig builds a Registry from credentials visible through
// lookup. Key-based providers are registered only when their key is set;
// the local Ollama provider is always registered.
func NewRegistryFromConfig(lookup func(string) string, log *logging.Logger) *Registry {
	reg := NewRegistry(log)

	if key := lookup("OPENAI_API_KEY"); key != "" {
		spec, _ := Spec(ProviderOpenAI)
		reg.Register(ProviderOpenAI, NewOpenAIClient(ProviderOpenAI, key, lookup("OPENAI_BASE_URL"), spec.DefaultModel))
	}

	if key := lookup("DEEPSEEK_API_KEY"); key != "" {
		spec, _ := Spec(ProviderDeepSeek)
		reg.Register(ProviderDeepSeek, NewOpenAIClient(ProviderDeepSeek, key, DeepSeekBaseURL, spec.DefaultModel))
	}

	if key := lookup("ANTHROPIC_API_KEY"); key != "" {
		spec, _ := Spec(ProviderClaude)
		reg.Register(ProviderClaude, NewAnthropicClient(key, spec.DefaultModel))
	}

	spec, _ := Spec(ProviderLlama)
	reg.Register(ProviderLlama, NewOllamaClient(lookup("OLLAMA_HOST"), spec.DefaultModel))

	for alias, target := range providerAliases {
		reg.Alias(alias, target)
	}
	return reg
}
