package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/soyeahso/collig/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(name string, err error) *llm.MockClient {
	return &llm.MockClient{
		ProviderName: name,
		CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, err
		},
	}
}

func answering(name string, seenModel *string) *llm.MockClient {
	return &llm.MockClient{
		ProviderName: name,
		CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			if seenModel != nil {
				*seenModel = req.Model
			}
			return &llm.CompletionResponse{Content: "from " + name}, nil
		},
	}
}

func TestParseTarget(t *testing.T) {
	assert.Equal(t, Target{Provider: "claude", Model: "claude-sonnet-4-5"}, ParseTarget("anthropic"))
	assert.Equal(t, Target{Provider: "llama", Model: "qwen2.5"}, ParseTarget(" ollama/qwen2.5 "))
	assert.Equal(t, Target{Provider: "openai", Model: "gpt-4o"}, ParseTarget("OpenAI"))
}

func TestFailover_PrimaryAnswers(t *testing.T) {
	reg := llm.NewRegistry(silentLog())
	var model string
	reg.Register("openai", answering("openai", &model))

	fc := NewFailoverClient(reg, Target{Provider: "openai", Model: "gpt-4o"}, nil, silentLog())
	resp, err := fc.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from openai", resp.Content)
	assert.Equal(t, "gpt-4o", model)
	assert.Equal(t, "openai", fc.Name())
}

func TestFailover_UnavailableFallsThrough(t *testing.T) {
	reg := llm.NewRegistry(silentLog())
	reg.Register("openai", failing("openai", &llm.ProviderError{Provider: "openai", Code: 503, Message: "overloaded"}))
	reg.Register("claude", failing("claude", &llm.ProviderError{Provider: "claude", Code: 529, Message: "overloaded"}))
	var model string
	reg.Register("llama", answering("llama", &model))

	fc := NewFailoverClient(reg, Target{Provider: "openai", Model: "gpt-4o"}, []string{"claude", "llama/mistral"}, silentLog())
	resp, err := fc.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from llama", resp.Content)
	assert.Equal(t, "mistral", model)
}

func TestFailover_UnregisteredProviderSkipped(t *testing.T) {
	reg := llm.NewRegistry(silentLog())
	reg.Register("llama", answering("llama", nil))

	fc := NewFailoverClient(reg, Target{Provider: "deepseek", Model: "deepseek-chat"}, []string{"llama"}, silentLog())
	resp, err := fc.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from llama", resp.Content)
}

func TestFailover_OtherErrorsStop(t *testing.T) {
	reg := llm.NewRegistry(silentLog())
	badRequest := &llm.ProviderError{Provider: "openai", Code: 400, Message: "bad request"}
	reg.Register("openai", failing("openai", badRequest))
	reg.Register("llama", answering("llama", nil))

	fc := NewFailoverClient(reg, Target{Provider: "openai", Model: "gpt-4o"}, []string{"llama"}, silentLog())
	_, err := fc.Complete(context.Background(), llm.CompletionRequest{})
	assert.ErrorIs(t, err, badRequest)
}

func TestFailover_AllUnavailable(t *testing.T) {
	reg := llm.NewRegistry(silentLog())
	reg.Register("openai", failing("openai", llm.ErrUnavailable))

	fc := NewFailoverClient(reg, Target{Provider: "openai", Model: "gpt-4o"}, []string{"claude"}, silentLog())
	_, err := fc.Complete(context.Background(), llm.CompletionRequest{})
	assert.True(t, errors.Is(err, llm.ErrUnavailable))
}

func TestFailover_DuplicatePrimaryDropped(t *testing.T) {
	reg := llm.NewRegistry(silentLog())
	fc := NewFailoverClient(reg, Target{Provider: "openai", Model: "gpt-4o"}, []string{"openai", "", "llama"}, silentLog())
	assert.Equal(t, []Target{
		{Provider: "openai", Model: "gpt-4o"},
		{Provider: "llama", Model: "llama3.1"},
	}, fc.Targets())
}
