package app

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/collig/internal/config"
	"github.com/soyeahso/collig/internal/llm"
	"github.com/soyeahso/collig/internal/logging"
	"github.com/soyeahso/collig/internal/skill"
)

func newTestApp(t *testing.T, client llm.Client, env map[string]string) *App {
	t.Helper()
	for _, k := range []string{
		config.KeyProvider, config.KeyModel, config.KeyFallbacks, config.KeyGitAllowedRoots,
		config.KeyLogLevel, config.KeyToolTimeout, config.KeyTokenEstimator, config.KeyMaxToolIterations,
		"DEEPSEEK_API_KEY", "ANTHROPIC_API_KEY", "BRAVE_API_KEY", "google_maps_api_key", "gmail_credentials_file",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv(config.KeyClassifier, config.ClassifierKeyword)
	for k, v := range env {
		t.Setenv(k, v)
	}

	paths := config.PathsAt(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join(paths.Skills, "haiku"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(paths.Skills, "haiku", "SKILL.md"),
		[]byte("---\nname: Haiku\ndescription: Writes haiku\n---\nAnswer only in haiku."), 0o600))

	a, err := New(Options{
		Paths:    paths,
		Log:      logging.New(nil, "silent"),
		Database: ":memory:",
		Opener:   func(context.Context, string) error { return nil },
		Providers: func(lookup func(string) string, log *logging.Logger) *llm.Registry {
			r := llm.NewRegistry(log)
			r.Register(llm.ProviderOpenAI, client)
			return r
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewRegistersSkills(t *testing.T) {
	a := newTestApp(t, &llm.MockClient{}, nil)

	var names []string
	for _, s := range a.Skills.Skills() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"Setup Wizard", "Map & Navigation",
		"System Info", "Time Teller", "Date Calculator", "Weather Reporter", "NewsSkill",
		"Web Browser", "File System", "Memory & Notes", "Bookmarks", "Personal Profile",
		"Git Assistant", "Email Manager", "Gmail",
		"Haiku",
	}, names)
	assert.False(t, a.classifierEnabled(), "keyword mode skips the model")

	for _, dir := range []string{"email", "gmail"} {
		info, err := os.Stat(filepath.Join(a.Paths.Configs, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLLMClassifierMode(t *testing.T) {
	a := newTestApp(t, &llm.MockClient{}, map[string]string{config.KeyClassifier: config.ClassifierLLM})
	assert.NotNil(t, a.Classifier)
	assert.True(t, a.classifierEnabled())
}

func TestClassifierModeFollowsConfigChanges(t *testing.T) {
	var calls atomic.Int32
	client := &llm.MockClient{CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		calls.Add(1)
		return &llm.CompletionResponse{Content: "Weather Reporter"}, nil
	}}
	// Empty env so the stored value decides.
	a := newTestApp(t, client, map[string]string{config.KeyClassifier: ""})

	require.NoError(t, a.Config.Set(config.KeyClassifier, config.ClassifierKeyword))
	assert.Nil(t, a.Skills.Find(context.Background(), "sing me a song"))
	assert.Zero(t, calls.Load())

	require.NoError(t, a.Config.Set(config.KeyClassifier, config.ClassifierLLM))
	s := a.Skills.Find(context.Background(), "sing me a song")
	require.NotNil(t, s)
	assert.Equal(t, "Weather Reporter", s.Name())
	assert.Equal(t, int32(1), calls.Load())
}

func TestPromptSkillUsesAgent(t *testing.T) {
	var system string
	client := &llm.MockClient{CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		system = req.System
		return &llm.CompletionResponse{Content: "old pond / a frog jumps"}, nil
	}}
	a := newTestApp(t, client, nil)

	id, err := a.Agent.NewSession(context.Background())
	require.NoError(t, err)
	res := a.Agent.Process(context.Background(), "haiku please", id)
	assert.Equal(t, skill.ActionPromptResponse, res.Action)
	assert.Equal(t, "old pond / a frog jumps", res.Response)
	assert.Equal(t, "Answer only in haiku.", system)
}

func TestSetupWizardSavesToStore(t *testing.T) {
	a := newTestApp(t, &llm.MockClient{}, nil)
	creds := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(creds, []byte("{}"), 0o600))

	id, err := a.Agent.NewSession(context.Background())
	require.NoError(t, err)
	res := a.Agent.Process(context.Background(), "setup gmail", id)
	require.Equal(t, skill.ActionAskInput, res.Action)

	res = a.Agent.Process(context.Background(), creds, id)
	assert.Equal(t, skill.ActionConfirm, res.Action)
	assert.Equal(t, creds, a.Config.Lookup("gmail_credentials_file"))
}

func TestMapsWithoutKey(t *testing.T) {
	a := newTestApp(t, &llm.MockClient{}, nil)
	res := a.Agent.Process(context.Background(), "directions to the airport", "")
	assert.Equal(t, skill.ActionMissingConfig, res.Action)

	missing := a.MissingConfig()
	var keys []string
	for _, m := range missing {
		keys = append(keys, m.Key)
	}
	assert.Contains(t, keys, "BRAVE_API_KEY")
	assert.Contains(t, keys, "google_maps_api_key")
}

func TestHomeLocation(t *testing.T) {
	a := newTestApp(t, &llm.MockClient{}, nil)
	assert.Empty(t, a.homeLocation())

	require.NoError(t, a.Profile.Set(ProfileLocationKey, "Lyon", "places"))
	assert.Equal(t, "Lyon", a.homeLocation())
}

func TestValidate(t *testing.T) {
	a := newTestApp(t, &llm.MockClient{}, map[string]string{config.KeyProvider: "gemini"})
	issues := a.Validate()
	require.Len(t, issues, 1)
	assert.Equal(t, config.KeyProvider, issues[0].Path)
}
