package agent

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/soyeahso/collig/internal/llm"
	"github.com/soyeahso/collig/internal/skill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constTool(name, out string) skill.Tool {
	return skill.Tool{
		Name:        name,
		Description: "returns " + out,
		Fn: func(context.Context, json.RawMessage) (string, error) {
			return out, nil
		},
	}
}

func TestToolRegistry_DefinitionsKeepOrder(t *testing.T) {
	r := NewToolRegistry([]skill.Tool{
		constTool("b", "1"),
		constTool("a", "2"),
		constTool("b", "3"),
	}, 0, silentLog())

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "b", defs[0].Name)
	assert.Equal(t, "returns 3", defs[0].Description, "later registration wins")
	assert.Equal(t, skill.EmptySchema, defs[1].InputSchema)
	assert.Equal(t, 2, r.Len())
}

func TestToolRegistry_Execute(t *testing.T) {
	r := NewToolRegistry([]skill.Tool{constTool("hello", "world")}, 0, silentLog())

	out, err := r.Execute(context.Background(), "hello", "{}")
	require.NoError(t, err)
	assert.Equal(t, "world", out)

	_, err = r.Execute(context.Background(), "missing", "{}")
	assert.EqualError(t, err, "unknown tool: missing")
}

func TestToolRegistry_Timeout(t *testing.T) {
	slow := skill.Tool{
		Name: "slow",
		Fn: func(ctx context.Context, _ json.RawMessage) (string, error) {
			time.Sleep(time.Second)
			return "late", nil
		},
	}
	r := NewToolRegistry([]skill.Tool{slow}, 20*time.Millisecond, silentLog())

	start := time.Now()
	_, err := r.Execute(context.Background(), "slow", "{}")
	assert.ErrorIs(t, err, ErrToolTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestToolRegistry_PerToolTimeoutOverrides(t *testing.T) {
	tool := skill.Tool{
		Name:    "patient",
		Timeout: time.Second,
		Fn: func(ctx context.Context, _ json.RawMessage) (string, error) {
			time.Sleep(30 * time.Millisecond)
			return "made it", nil
		},
	}
	r := NewToolRegistry([]skill.Tool{tool}, 5*time.Millisecond, silentLog())

	out, err := r.Execute(context.Background(), "patient", "{}")
	require.NoError(t, err)
	assert.Equal(t, "made it", out)
}

func TestToolRegistry_PanicRecovered(t *testing.T) {
	bad := skill.Tool{
		Name: "bad",
		Fn: func(context.Context, json.RawMessage) (string, error) {
			panic("index out of range")
		},
	}
	r := NewToolRegistry([]skill.Tool{bad}, 0, silentLog())

	out, err := r.run(context.Background(), llm.ToolCall{Name: "bad", Input: "{}"})
	require.Error(t, err)
	assert.Equal(t, "Error: tool bad panicked: index out of range", out)
}
