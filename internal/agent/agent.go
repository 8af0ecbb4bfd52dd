// Package agent drives one conversational turn: direct skill dispatch,
// history compression, and the model's tool-calling loop.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/collig/internal/compress"
	"github.com/soyeahso/collig/internal/config"
	"github.com/soyeahso/collig/internal/hooks"
	"github.com/soyeahso/collig/internal/llm"
	"github.com/soyeahso/collig/internal/logging"
	"github.com/soyeahso/collig/internal/session"
	"github.com/soyeahso/collig/internal/skill"
)

// ConfigStore is the slice of the config store the agent reads and writes.
type ConfigStore interface {
	config.Getter
	Lookup(key string) string
	Set(key, value string) error
	Version() uint64
}

// RegistryFactory builds provider clients from the current credentials.
type RegistryFactory func(lookup func(string) string, log *logging.Logger) *llm.Registry

// Options wires an Agent.
type Options struct {
	Skills   *skill.Registry
	Sessions *session.FileStore
	States   *skill.StateStore
	Config   ConfigStore
	Hooks    *hooks.Manager
	Log      *logging.Logger
	// Providers defaults to llm.NewRegistryFromConfig.
	Providers RegistryFactory
	// Estimator sizes history for compression; nil uses the configured one.
	Estimator compress.Estimator
	Now       func() time.Time
}

// Agent is the orchestrator. It is safe for concurrent use across
// sessions; turns within one session are expected to be sequential.
type Agent struct {
	skills     *skill.Registry
	sessions   *session.FileStore
	states     *skill.StateStore
	cfg        ConfigStore
	hooks      *hooks.Manager
	log        *logging.Logger
	factory    RegistryFactory
	compressor *compress.Compressor
	now        func() time.Time

	mu         sync.Mutex
	llms       *llm.Registry
	llmVersion uint64
}

// New creates an Agent.
func New(opts Options) *Agent {
	a := &Agent{
		skills:   opts.Skills,
		sessions: opts.Sessions,
		states:   opts.States,
		cfg:      opts.Config,
		hooks:    opts.Hooks,
		log:      opts.Log.Sub("agent"),
		factory:  opts.Providers,
		now:      opts.Now,
	}
	if a.factory == nil {
		a.factory = llm.NewRegistryFromConfig
	}
	if a.states == nil {
		a.states = skill.NewStateStore(0)
	}
	if a.now == nil {
		a.now = time.Now
	}
	est := opts.Estimator
	if est == nil {
		est = compress.EstimatorFor(a.settings().TokenEstimator)
	}
	a.compressor = compress.New(compress.SummarizerFunc(a.Summarize), est, opts.Log)
	return a
}

func (a *Agent) settings() config.Settings { return config.Load(a.cfg) }

// registry returns provider clients, rebuilding them after any config
// change so new keys are picked up without a restart.
func (a *Agent) registry() *llm.Registry {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := a.cfg.Version()
	if a.llms == nil || v != a.llmVersion {
		a.llms = a.factory(a.cfg.Lookup, a.log)
		a.llmVersion = v
		a.log.Debug().Strs("providers", a.llms.List()).Msg("provider clients built")
	}
	return a.llms
}

// Provider returns the active provider and model. An unset model means the
// provider's default; an unknown provider means openai.
func (a *Agent) Provider() (string, string) {
	name, ok := llm.Canonical(a.settings().Provider)
	if !ok {
		name = llm.ProviderOpenAI
	}
	if m, ok := a.cfg.Get(config.KeyModel); ok && strings.TrimSpace(m) != "" {
		return name, strings.TrimSpace(m)
	}
	spec, _ := llm.Spec(name)
	return name, spec.DefaultModel
}

// SetProvider persists a provider/model preference. Without a model the
// provider's default is used; an unknown provider becomes openai.
func (a *Agent) SetProvider(provider, model string) string {
	name, ok := llm.Canonical(provider)
	if !ok {
		a.log.Warn().Str("provider", provider).Msg("unknown provider, using openai")
		name = llm.ProviderOpenAI
	}
	if strings.TrimSpace(model) == "" {
		spec, _ := llm.Spec(name)
		model = spec.DefaultModel
	}
	model = strings.TrimSpace(model)

	if err := a.cfg.Set(config.KeyProvider, name); err != nil {
		return fmt.Sprintf("Failed to switch provider: %v", err)
	}
	if err := a.cfg.Set(config.KeyModel, model); err != nil {
		return fmt.Sprintf("Failed to switch provider: %v", err)
	}
	a.registry()

	a.log.Info().Str("provider", name).Str("model", model).Msg("provider switched")
	a.hooks.Emit(context.Background(), hooks.EventProviderChanged, map[string]any{
		"provider": name,
		"model":    model,
	})
	msg := fmt.Sprintf("Provider switched to %s (%s)", name, model)
	if eff, _ := llm.Canonical(a.cfg.Lookup(config.KeyProvider)); eff != name {
		msg += fmt.Sprintf("\nNote: the %s environment variable is set to %q and overrides the saved provider until it is unset.",
			config.KeyProvider, a.cfg.Lookup(config.KeyProvider))
	}
	if eff := strings.TrimSpace(a.cfg.Lookup(config.KeyModel)); eff != model {
		msg += fmt.Sprintf("\nNote: the %s environment variable is set to %q and overrides the saved model until it is unset.",
			config.KeyModel, eff)
	}
	return msg
}

// GetAvailableModels lists the model catalogue. Ollama models are
// fetched live from the local server.
func (a *Agent) GetAvailableModels(ctx context.Context) string {
	var b strings.Builder
	for i, spec := range llm.Providers() {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s:\n", spec.DisplayName)
		if spec.Name != llm.ProviderLlama {
			for _, m := range spec.Models {
				if m.Label != "" {
					fmt.Fprintf(&b, "  - %s (%s)\n", m.ID, m.Label)
				} else {
					fmt.Fprintf(&b, "  - %s\n", m.ID)
				}
			}
			continue
		}
		models, err := a.ollamaModels(ctx)
		if err != nil {
			fmt.Fprintf(&b, "  (Ollama not found or error: %v)\n", err)
			continue
		}
		if len(models) == 0 {
			b.WriteString("  (no models pulled)\n")
		}
		for _, m := range models {
			fmt.Fprintf(&b, "  - %s\n", m)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *Agent) ollamaModels(ctx context.Context) ([]string, error) {
	client, err := a.registry().Resolve(llm.ProviderLlama)
	if err != nil {
		return nil, err
	}
	lister, ok := client.(interface {
		Models(ctx context.Context) ([]string, error)
	})
	if !ok {
		return nil, errors.New("client cannot list models")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := lister.Models(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(models)
	return models, nil
}

// client returns the failover chain for the active provider, or an error
// wrapping llm.ErrUnavailable when its key is missing.
func (a *Agent) client(s config.Settings) (*FailoverClient, Target, error) {
	provider, model := a.Provider()
	if key := llm.MissingKey(provider, a.cfg.Lookup); key != "" {
		return nil, Target{}, &MissingKeyError{Provider: provider, Key: key}
	}
	primary := Target{Provider: provider, Model: model}
	return NewFailoverClient(a.registry(), primary, s.Fallbacks, a.log), primary, nil
}

// MissingKeyError reports the credential the active provider lacks.
type MissingKeyError struct {
	Provider string
	Key      string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s is not configured: %s is missing", e.Provider, e.Key)
}

func (e *MissingKeyError) Unwrap() error { return llm.ErrUnavailable }

// Guidance is the user-facing hint for fixing the missing key.
func (e *MissingKeyError) Guidance() string {
	return fmt.Sprintf("The %s provider needs an API key. Please set it using 'collig config set %s <key>' (or /config set %s <key> in chat).",
		e.Provider, e.Key, e.Key)
}

// Complete runs one tool-less completion with the current provider.
func (a *Agent) Complete(ctx context.Context, system, user string) (string, error) {
	fc, _, err := a.client(a.settings())
	if err != nil {
		return "", err
	}
	resp, err := fc.Complete(ctx, llm.CompletionRequest{
		System:   system,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: user}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Summarize backs the history compressor with the provider's summary model.
func (a *Agent) Summarize(ctx context.Context, prompt string) (string, error) {
	client, model, err := a.SummaryClient()
	if err != nil {
		return "", err
	}
	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Model:       model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Temperature: llm.Temperature(0),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// SummaryClient returns the active provider's client and its cheap model,
// for summaries and intent classification.
func (a *Agent) SummaryClient() (llm.Client, string, error) {
	provider, model := a.Provider()
	if key := llm.MissingKey(provider, a.cfg.Lookup); key != "" {
		return nil, "", &MissingKeyError{Provider: provider, Key: key}
	}
	client, err := a.registry().Resolve(provider)
	if err != nil {
		return nil, "", err
	}
	if spec, ok := llm.Spec(provider); ok && spec.SummaryModel != "" {
		model = spec.SummaryModel
	}
	return client, model, nil
}

// Process handles one user message. It never returns an error: failures
// come back as a Result with action "error" or "missing_config".
func (a *Agent) Process(ctx context.Context, message, sessionID string) (result skill.Result) {
	start := a.now()
	log := a.log
	if sessionID != "" {
		log = log.With("sessionId", sessionID)
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("turn panicked")
			result = errorResult(fmt.Errorf("%v", p))
		}
		a.hooks.Emit(ctx, hooks.EventAfterAgentRun, map[string]any{
			"sessionId": sessionID,
			"action":    result.Action,
			"duration":  a.now().Sub(start),
		})
	}()

	a.hooks.Emit(ctx, hooks.EventMessageReceived, map[string]any{
		"sessionId": sessionID,
		"message":   message,
	})

	var prior []session.Message
	if sessionID != "" {
		prior = a.sessions.History(sessionID)
		if err := a.sessions.Append(sessionID, session.RoleUser, message); err != nil {
			return errorResult(fmt.Errorf("saving message: %w", err))
		}
	}

	st := a.state(ctx, sessionID)
	ctx = skill.WithState(skill.WithSession(ctx, sessionID), st)

	if res, ok := a.dispatchExecutor(ctx, message, sessionID, st); ok {
		a.persistReply(log, sessionID, res.Response)
		return res
	}

	s := a.settings()
	fc, target, err := a.client(s)
	if err != nil {
		var mk *MissingKeyError
		if errors.As(err, &mk) {
			log.Warn().Str("key", mk.Key).Msg("provider key missing")
			return skill.Result{
				Response: mk.Guidance(),
				Action:   skill.ActionMissingConfig,
				Data:     map[string]any{"provider": mk.Provider, "key": mk.Key},
			}
		}
		return errorResult(err)
	}

	a.hooks.Emit(ctx, hooks.EventBeforeAgentRun, map[string]any{
		"sessionId": sessionID,
		"provider":  target.Provider,
		"model":     target.Model,
	})

	msgs := make([]llm.Message, 0, compress.RawContextCount+3)
	if sessionID != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: "Current Session ID: " + sessionID})
	}
	msgs = append(msgs, a.compressor.Compress(ctx, prior, message)...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	tools := NewToolRegistry(a.skills.Tools(), s.ToolTimeout, a.log)
	defs := tools.Definitions()
	system := BuildSystemPrompt(PromptConfig{
		Provider:    target.Provider,
		Model:       target.Model,
		Tools:       defs,
		FencedTools: target.Provider == llm.ProviderLlama,
		Now:         a.now(),
	})

	answer, err := a.loop(ctx, log, fc, tools, system, msgs, s.MaxToolIterations)
	if err != nil {
		log.Error().Err(err).Msg("reasoning loop failed")
		return errorResult(err)
	}

	a.persistReply(log, sessionID, answer)
	log.Info().
		Str("provider", target.Provider).
		Str("model", target.Model).
		Dur("duration", a.now().Sub(start)).
		Msg("response generated")
	return skill.Result{Response: answer, Action: skill.ActionAgentResponse}
}

func (a *Agent) state(ctx context.Context, sessionID string) *skill.State {
	if sessionID == "" {
		return skill.StateFrom(ctx)
	}
	return a.states.For(sessionID)
}

// dispatchExecutor routes the message to a direct executor when one is
// active for the session or matches the message. ok is false when the
// message should go to the model instead.
func (a *Agent) dispatchExecutor(ctx context.Context, message, sessionID string, st *skill.State) (skill.Result, bool) {
	var target skill.Skill
	if name := st.GetString(skill.StateActiveExecutor); name != "" {
		if s, found := a.skills.Get(name); found {
			target = s
		} else {
			st.Delete(skill.StateActiveExecutor)
		}
	}
	if target == nil {
		target = a.skills.Find(ctx, message)
	}
	if _, ok := target.(skill.Executor); !ok {
		return skill.Result{}, false
	}

	a.hooks.Emit(ctx, hooks.EventSkillDispatched, map[string]any{
		"sessionId": sessionID,
		"skill":     target.Name(),
	})
	provider, model := a.Provider()
	res := a.skills.Execute(ctx, target, message,
		map[string]any{"session_id": sessionID},
		map[string]any{"provider": provider, "model": model},
	)
	if res.Status == skill.StatusContinue {
		st.Set(skill.StateActiveExecutor, target.Name())
	} else {
		st.Delete(skill.StateActiveExecutor)
	}
	return res, true
}

// loop lets the model call tools until it answers without any, or the
// iteration bound runs out, in which case the last text is the answer.
func (a *Agent) loop(ctx context.Context, log *logging.Logger, client llm.Client, tools *ToolRegistry, system string, msgs []llm.Message, maxIter int) (string, error) {
	if maxIter <= 0 {
		maxIter = config.Defaults().MaxToolIterations
	}
	sessionID := skill.SessionFrom(ctx)

	var last string
	for i := 0; i < maxIter; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		resp, err := client.Complete(ctx, llm.CompletionRequest{
			System:   system,
			Messages: msgs,
			Tools:    tools.Definitions(),
		})
		if err != nil {
			return "", err
		}

		calls := resp.ToolCalls
		text := resp.Content
		if len(calls) == 0 {
			calls = parseToolCalls(text)
		}
		last = stripToolCalls(text, log)
		if len(calls) == 0 {
			return last, nil
		}

		log.Debug().Int("iteration", i+1).Int("toolCalls", len(calls)).Msg("executing tool calls")
		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: last, ToolCalls: calls})

		for _, call := range calls {
			a.hooks.Emit(ctx, hooks.EventToolCall, map[string]any{
				"sessionId": sessionID,
				"phase":     "start",
				"tool":      call.Name,
				"args":      MaskArgs(call.Input),
				"reasoning": last,
			})
			out, err := tools.run(ctx, call)
			done := map[string]any{
				"sessionId": sessionID,
				"phase":     "done",
				"tool":      call.Name,
			}
			if err != nil {
				log.Warn().Err(err).Str("tool", call.Name).Msg("tool failed")
				done["error"] = err.Error()
			}
			a.hooks.Emit(ctx, hooks.EventToolCall, done)
			msgs = append(msgs, llm.Message{
				Role:       llm.RoleTool,
				Content:    out,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}

	log.Warn().Int("maxIterations", maxIter).Msg("tool iteration limit reached")
	return last, nil
}

func (a *Agent) persistReply(log *logging.Logger, sessionID, response string) {
	if sessionID == "" {
		return
	}
	if err := a.sessions.Append(sessionID, session.RoleAssistant, response); err != nil {
		log.Error().Err(err).Msg("failed to save reply")
	}
}

// ClearSession empties a session's history and forgets its skill state.
func (a *Agent) ClearSession(ctx context.Context, sessionID string) error {
	if err := a.sessions.Clear(sessionID); err != nil {
		return err
	}
	a.states.Drop(sessionID)
	a.hooks.Emit(ctx, hooks.EventSessionCleared, map[string]any{"sessionId": sessionID})
	return nil
}

// NewSession creates an empty session.
func (a *Agent) NewSession(ctx context.Context) (string, error) {
	id, err := a.sessions.Create()
	if err != nil {
		return "", err
	}
	a.hooks.Emit(ctx, hooks.EventSessionCreated, map[string]any{"sessionId": id})
	return id, nil
}

func errorResult(err error) skill.Result {
	return skill.Result{
		Response: "I encountered an error: " + err.Error(),
		Action:   skill.ActionError,
	}
}
