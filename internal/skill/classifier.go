package skill

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/soyeahso/collig/internal/llm"
	"github.com/soyeahso/collig/internal/logging"
)

var (
	// ErrNoAnswer is returned when the model's reply is empty.
	ErrNoAnswer = errors.New("classifier returned no answer")
	// ErrClassifierDisabled is returned while the enabled check reports
	// false. Find treats it as a quiet keyword fallback.
	ErrClassifierDisabled = errors.New("classifier disabled")
)

const (
	defaultClassifyTimeout = 10 * time.Second
	defaultClassifyTTL     = 10 * time.Minute
)

// ClientSource yields the client and model to classify with. It returns
// an error wrapping llm.ErrUnavailable when no credential is configured.
type ClientSource func() (llm.Client, string, error)

// LLMClassifier asks a model which skill matches a message.
type LLMClassifier struct {
	source  ClientSource
	timeout time.Duration
	ttl     time.Duration
	cache   *ristretto.Cache
	enabled func() bool
	log     *logging.Logger
}

// NewLLMClassifier creates a classifier with a 10s timeout and a
// ten-minute answer cache.
func NewLLMClassifier(source ClientSource, log *logging.Logger) (*LLMClassifier, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &LLMClassifier{
		source:  source,
		timeout: defaultClassifyTimeout,
		ttl:     defaultClassifyTTL,
		cache:   cache,
		log:     log.Sub("classifier"),
	}, nil
}

// WithTimeout sets the per-call timeout.
func (c *LLMClassifier) WithTimeout(d time.Duration) *LLMClassifier {
	c.timeout = d
	return c
}

// WithEnabled installs a check consulted on every call, so the mode can
// change while the process runs.
func (c *LLMClassifier) WithEnabled(enabled func() bool) *LLMClassifier {
	c.enabled = enabled
	return c
}

// Classify returns the skill name the model chose, or NoneSentinel. Only
// answers naming a roster entry or the sentinel are cached.
func (c *LLMClassifier) Classify(ctx context.Context, roster []Info, message string) (string, error) {
	if c.enabled != nil && !c.enabled() {
		return "", ErrClassifierDisabled
	}
	client, model, err := c.source()
	if err != nil {
		return "", err
	}

	prompt := ClassifierPrompt(roster)
	key := cacheKey(client.Name(), model, prompt, message)
	if v, ok := c.cache.Get(key); ok {
		if name, ok := v.(string); ok {
			return name, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Model:       model,
		System:      prompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: message}},
		Temperature: llm.Temperature(0),
		MaxTokens:   32,
	})
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}

	name := strings.TrimSpace(resp.Content)
	if name == "" {
		return "", ErrNoAnswer
	}
	if knownAnswer(roster, name) {
		c.cache.SetWithTTL(key, name, int64(len(name)), c.ttl)
	}
	c.log.Debug().Str("skill", name).Msg("classified intent")
	return name, nil
}

// ClassifierPrompt renders the classification system prompt for roster.
func ClassifierPrompt(roster []Info) string {
	entries := make([]string, 0, len(roster))
	for _, s := range roster {
		entries = append(entries, fmt.Sprintf("- Name: %s\n  Description: %s\n  Triggers: %s",
			s.Name, s.Description, strings.Join(s.Triggers, ", ")))
	}

	return "You are an intelligent intent classifier for an AI agent.\n" +
		"Your task is to determine which skill from the available list best matches the user's request.\n" +
		"Available Skills:\n" +
		strings.Join(entries, "\n") + "\n\n" +
		"Rules:\n" +
		"1. Analyze the user's message and the capabilities of each skill.\n" +
		"2. If a skill matches the intent, return ONLY the exact Name of the skill.\n" +
		"3. If no skill matches, return 'None'.\n" +
		"4. Be flexible with natural language variations (e.g., 'check mail' should match 'Email Manager').\n" +
		"5. Do not include any other text, explanation, or punctuation."
}

func knownAnswer(roster []Info, answer string) bool {
	name := CleanAnswer(answer)
	if strings.EqualFold(name, NoneSentinel) {
		return true
	}
	for _, s := range roster {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

func cacheKey(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// Wait blocks until pending cache writes are visible. Used by tests.
func (c *LLMClassifier) Wait() { c.cache.Wait() }

// Close releases the cache.
func (c *LLMClassifier) Close() { c.cache.Close() }
