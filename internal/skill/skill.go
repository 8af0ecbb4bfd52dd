// Package skill defines Collig's capability units and the registry that
// dispatches user messages to them.
//
// A Skill describes itself (name, description, trigger phrases, required
// config keys) and exposes its behaviour through one of two capability
// interfaces: ToolProvider, whose tools the agent's model may call, or
// Executor, which handles a message directly and may hold multi-turn state.
package skill

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Skill is the descriptive surface every capability unit implements.
type Skill interface {
	Name() string
	Description() string
	// Triggers are lowercase phrases for keyword dispatch.
	Triggers() []string
	// RequiredConfig lists config keys the skill needs to work.
	RequiredConfig() []string
}

// ToolProvider is a skill whose behaviour is a set of model-callable tools.
type ToolProvider interface {
	Skill
	Tools() []Tool
}

// Executor is a skill that handles a message itself.
type Executor interface {
	Skill
	Execute(ctx context.Context, c Context) (Result, error)
}

// ToolFunc runs a tool with its raw JSON arguments.
type ToolFunc func(ctx context.Context, args json.RawMessage) (string, error)

// Tool is a single model-callable function.
type Tool struct {
	Name        string
	Description string
	// Schema is a JSON Schema object describing the arguments.
	Schema string
	// Timeout overrides the agent's default per-tool timeout when set.
	Timeout time.Duration
	Fn      ToolFunc
}

// EmptySchema is the schema of a tool that takes no arguments.
const EmptySchema = `{"type":"object","properties":{}}`

// Action values carried by Result.Action.
const (
	ActionError          = "error"
	ActionMissingConfig  = "missing_config"
	ActionAgentResponse  = "agent_response"
	ActionAskInput       = "ask_input"
	ActionConfirm        = "confirm"
	ActionOpenURL        = "open_url"
	ActionGuideComplete  = "guide_complete"
	ActionStopSetup      = "stop_setup"
	ActionShowRoute      = "show_route"
	ActionPromptResponse = "prompt_response"
)

// StatusContinue keeps a direct executor active for the next message.
const StatusContinue = "continue"

// Result is what a skill or the agent hands back to the caller.
type Result struct {
	Response string         `json:"response"`
	Action   string         `json:"action,omitempty"`
	Status   string         `json:"status,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Context is the merged key/value bag passed to Executor.Execute.
type Context map[string]any

// MessageKey is the Context key holding the user's message.
const MessageKey = "message"

// Message returns the user's message.
func (c Context) Message() string { return c.String(MessageKey) }

// String returns c[key] when it is a string.
func (c Context) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Errorf builds an error Result.
func Errorf(format string, args ...any) Result {
	return Result{Response: fmt.Sprintf(format, args...), Action: ActionError}
}

// Base supplies the descriptive half of Skill for embedding.
type Base struct {
	SkillName        string
	SkillDescription string
	SkillTriggers    []string
	SkillConfig      []string
}

func (b Base) Name() string { return b.SkillName }

func (b Base) Description() string {
	if b.SkillDescription == "" {
		return "Skill: " + b.SkillName
	}
	return b.SkillDescription
}

func (b Base) Triggers() []string       { return b.SkillTriggers }
func (b Base) RequiredConfig() []string { return b.SkillConfig }

// DecodeArgs unmarshals tool arguments into v, treating empty input as {}.
func DecodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
