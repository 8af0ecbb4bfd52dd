package skill

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soyeahso/collig/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockSource(m *llm.MockClient) ClientSource {
	return func() (llm.Client, string, error) { return m, "mini", nil }
}

func TestLLMClassifier_ReturnsTrimmedName(t *testing.T) {
	var req llm.CompletionRequest
	m := &llm.MockClient{
		ProviderName: "openai",
		CompleteFunc: func(_ context.Context, r llm.CompletionRequest) (*llm.CompletionResponse, error) {
			req = r
			return &llm.CompletionResponse{Content: "  Email Manager\n"}, nil
		},
	}
	c, err := NewLLMClassifier(mockSource(m), silentLog())
	require.NoError(t, err)
	defer c.Close()

	roster := []Info{{Name: "Email Manager", Description: "mail", Triggers: []string{"email", "inbox"}}}
	name, err := c.Classify(context.Background(), roster, "check mail")
	require.NoError(t, err)
	assert.Equal(t, "Email Manager", name)

	assert.Equal(t, "mini", req.Model)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.0, *req.Temperature)
	assert.Contains(t, req.System, "- Name: Email Manager\n  Description: mail\n  Triggers: email, inbox")
	assert.Contains(t, req.System, "3. If no skill matches, return 'None'.")
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "check mail", req.Messages[0].Content)
}

func TestLLMClassifier_CachesAnswers(t *testing.T) {
	var calls atomic.Int32
	m := &llm.MockClient{
		ProviderName: "openai",
		CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls.Add(1)
			return &llm.CompletionResponse{Content: "Weather"}, nil
		},
	}
	c, err := NewLLMClassifier(mockSource(m), silentLog())
	require.NoError(t, err)
	defer c.Close()

	roster := []Info{{Name: "Weather"}}
	_, err = c.Classify(context.Background(), roster, "rain?")
	require.NoError(t, err)
	c.Wait()
	_, err = c.Classify(context.Background(), roster, "rain?")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
}

func TestLLMClassifier_Errors(t *testing.T) {
	unavailable := func() (llm.Client, string, error) {
		return nil, "", fmt.Errorf("no key: %w", llm.ErrUnavailable)
	}
	c, err := NewLLMClassifier(unavailable, silentLog())
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), nil, "x")
	assert.ErrorIs(t, err, llm.ErrUnavailable)

	empty := &llm.MockClient{CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: "   "}, nil
	}}
	c, err = NewLLMClassifier(mockSource(empty), silentLog())
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), nil, "x")
	assert.ErrorIs(t, err, ErrNoAnswer)
}

func TestLLMClassifier_Timeout(t *testing.T) {
	slow := &llm.MockClient{CompleteFunc: func(ctx context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c, err := NewLLMClassifier(mockSource(slow), silentLog())
	require.NoError(t, err)
	c.WithTimeout(20 * time.Millisecond)

	_, err = c.Classify(context.Background(), nil, "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistryWithLLMClassifierFallsBack(t *testing.T) {
	broken := &llm.MockClient{CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, &llm.ProviderError{Provider: "openai", Code: 500, Message: "oops"}
	}}
	c, err := NewLLMClassifier(mockSource(broken), silentLog())
	require.NoError(t, err)

	reg := NewRegistry(c, silentLog())
	weather := named("Weather", "weather")
	reg.Register(weather)

	assert.Same(t, weather, reg.Find(context.Background(), "what's the weather in Paris"))
}

func TestLLMClassifier_DoesNotCacheUnknownAnswers(t *testing.T) {
	var calls atomic.Int32
	m := &llm.MockClient{
		ProviderName: "openai",
		CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls.Add(1)
			return &llm.CompletionResponse{Content: "I think it's the Weather skill"}, nil
		},
	}
	c, err := NewLLMClassifier(mockSource(m), silentLog())
	require.NoError(t, err)
	defer c.Close()

	roster := []Info{{Name: "Weather"}}
	for i := 0; i < 2; i++ {
		_, err = c.Classify(context.Background(), roster, "rain?")
		require.NoError(t, err)
		c.Wait()
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestLLMClassifier_EnabledCheck(t *testing.T) {
	var calls atomic.Int32
	m := &llm.MockClient{CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		calls.Add(1)
		return &llm.CompletionResponse{Content: "Weather"}, nil
	}}
	var on atomic.Bool
	c, err := NewLLMClassifier(mockSource(m), silentLog())
	require.NoError(t, err)
	defer c.Close()
	c.WithEnabled(on.Load)

	_, err = c.Classify(context.Background(), nil, "rain?")
	assert.ErrorIs(t, err, ErrClassifierDisabled)
	assert.Zero(t, calls.Load())

	on.Store(true)
	name, err := c.Classify(context.Background(), nil, "rain?")
	require.NoError(t, err)
	assert.Equal(t, "Weather", name)
}

func TestRegistryWithLLMClassifierMalformedAnswer(t *testing.T) {
	chatty := &llm.MockClient{CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: "Sure, that is the Weather skill."}, nil
	}}
	c, err := NewLLMClassifier(mockSource(chatty), silentLog())
	require.NoError(t, err)
	defer c.Close()

	reg := NewRegistry(c, silentLog())
	weather := named("Weather", "weather")
	reg.Register(weather)

	assert.Same(t, weather, reg.Find(context.Background(), "what's the weather in Paris"))
}
