package agent

import (
	"context"
	"strings"

	"github.com/soyeahso/collig/internal/llm"
	"github.com/soyeahso/collig/internal/logging"
)

// Target names a provider and the model to ask it for.
type Target struct {
	Provider string
	Model    string
}

// ParseTarget reads "provider" or "provider/model". Without a model the
// provider's default is used.
func ParseTarget(s string) Target {
	s = strings.TrimSpace(s)
	provider, model, _ := strings.Cut(s, "/")
	name, _ := llm.Canonical(provider)
	if model == "" {
		if spec, ok := llm.Spec(name); ok {
			model = spec.DefaultModel
		}
	}
	return Target{Provider: name, Model: model}
}

// FailoverClient tries the primary target, then each fallback in order.
// It moves on only when a provider declares itself unavailable; any other
// error is returned as is.
type FailoverClient struct {
	registry *llm.Registry
	targets  []Target
	log      *logging.Logger
}

// NewFailoverClient creates a client over primary and the fallback list.
func NewFailoverClient(registry *llm.Registry, primary Target, fallbacks []string, log *logging.Logger) *FailoverClient {
	targets := []Target{primary}
	for _, fb := range fallbacks {
		t := ParseTarget(fb)
		if t.Provider == "" || t == primary {
			continue
		}
		targets = append(targets, t)
	}
	return &FailoverClient{
		registry: registry,
		targets:  targets,
		log:      log.Sub("failover"),
	}
}

// Name returns the primary provider.
func (f *FailoverClient) Name() string { return f.targets[0].Provider }

// Targets returns the tiers in the order they are tried.
func (f *FailoverClient) Targets() []Target {
	out := make([]Target, len(f.targets))
	copy(out, f.targets)
	return out
}

// Complete tries each tier until one answers or fails for a reason other
// than unavailability.
func (f *FailoverClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var lastErr error
	for i, t := range f.targets {
		client, err := f.registry.Resolve(t.Provider)
		if err != nil {
			f.log.Debug().Str("provider", t.Provider).Err(err).Msg("provider not configured, skipping")
			lastErr = err
			continue
		}

		req.Model = t.Model
		resp, err := client.Complete(ctx, req)
		if err == nil {
			if i > 0 {
				f.log.Info().Str("provider", t.Provider).Str("model", t.Model).Msg("answered by fallback provider")
			}
			return resp, nil
		}

		lastErr = err
		if !llm.IsUnavailable(err) {
			return nil, err
		}
		f.log.Warn().
			Str("provider", t.Provider).
			Str("model", t.Model).
			Err(err).
			Msg("provider unavailable, trying next")
	}
	return nil, lastErr
}
