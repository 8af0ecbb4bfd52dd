package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/collig/internal/llm"
	"github.com/soyeahso/collig/internal/logging"
	"github.com/soyeahso/collig/internal/skill"
)

// DefaultToolTimeout bounds a tool that sets no timeout of its own.
const DefaultToolTimeout = 30 * time.Second

// ToolRegistry is the per-request view of the tools the model may call.
type ToolRegistry struct {
	tools   map[string]skill.Tool
	order   []string
	timeout time.Duration
	log     *logging.Logger
}

// NewToolRegistry indexes tools by name. A later tool with the same name
// replaces an earlier one. timeout <= 0 means DefaultToolTimeout.
func NewToolRegistry(tools []skill.Tool, timeout time.Duration, log *logging.Logger) *ToolRegistry {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	r := &ToolRegistry{
		tools:   make(map[string]skill.Tool, len(tools)),
		timeout: timeout,
		log:     log.Sub("tools"),
	}
	for _, t := range tools {
		if _, seen := r.tools[t.Name]; !seen {
			r.order = append(r.order, t.Name)
		}
		r.tools[t.Name] = t
	}
	return r
}

// Get returns a tool by name.
func (r *ToolRegistry) Get(name string) (skill.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of tools.
func (r *ToolRegistry) Len() int { return len(r.order) }

// Definitions returns model-ready tool definitions in registration order.
func (r *ToolRegistry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		schema := t.Schema
		if schema == "" {
			schema = skill.EmptySchema
		}
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return defs
}

// ErrToolTimeout is returned when a tool exceeds its deadline.
var ErrToolTimeout = errors.New("tool timed out")

// Execute runs the named tool under its timeout. Panics come back as
// errors. The tool runs in its own goroutine so a tool that ignores its
// context still cannot stall the loop past the deadline.
func (r *ToolRegistry) Execute(ctx context.Context, name, input string) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	if t.Fn == nil {
		return "", fmt.Errorf("tool %s has no implementation", name)
	}

	timeout := r.timeout
	if t.Timeout > 0 {
		timeout = t.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		out string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.log.Error().Str("tool", name).Interface("panic", p).Msg("tool panicked")
				done <- outcome{err: fmt.Errorf("tool %s panicked: %v", name, p)}
			}
		}()
		out, err := t.Fn(ctx, json.RawMessage(input))
		done <- outcome{out: out, err: err}
	}()

	select {
	case o := <-done:
		return o.out, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrToolTimeout, timeout)
		}
		return "", ctx.Err()
	}
}

// run executes a call and renders the outcome as the text fed back to
// the model.
func (r *ToolRegistry) run(ctx context.Context, call llm.ToolCall) (string, error) {
	out, err := r.Execute(ctx, call.Name, call.Input)
	if err != nil {
		return "Error: " + err.Error(), err
	}
	return out, nil
}
