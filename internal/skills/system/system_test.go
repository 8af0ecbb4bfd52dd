package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soyeahso/collig/internal/skill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClearer struct {
	cleared []string
	err     error
}

func (f *fakeClearer) ClearSession(_ context.Context, id string) error {
	f.cleared = append(f.cleared, id)
	return f.err
}

func tool(t *testing.T, s *Skill, name string) skill.Tool {
	t.Helper()
	for _, tl := range s.Tools() {
		if tl.Name == name {
			return tl
		}
	}
	t.Fatalf("tool %s not found", name)
	return skill.Tool{}
}

func TestSystemStatus(t *testing.T) {
	s := New(nil)
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.started = start
	s.now = func() time.Time { return start.Add(90*time.Minute + 5*time.Second + 300*time.Millisecond) }

	out, err := tool(t, s, "get_system_status").Fn(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "System Status: Online\nUptime: 1h30m5s")
}

func TestClearConversation(t *testing.T) {
	c := &fakeClearer{}
	s := New(c)
	fn := tool(t, s, "clear_conversation").Fn

	out, err := fn(context.Background(), []byte(`{"session_id":"abc"}`))
	require.NoError(t, err)
	assert.Equal(t, "Conversation history has been cleared.", out)

	ctx := skill.WithSession(context.Background(), "from-ctx")
	_, err = fn(ctx, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "from-ctx"}, c.cleared)

	out, err = fn(context.Background(), []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "Error: Session ID is required to clear conversation.", out)

	c.err = errors.New("disk gone")
	out, err = fn(context.Background(), []byte(`{"session_id":"abc"}`))
	require.NoError(t, err)
	assert.Equal(t, "Failed to clear conversation: disk gone", out)
}

func TestInstallPackage(t *testing.T) {
	s := New(nil)
	s.goos = "linux"
	var got []string
	s.run = func(_ context.Context, name string, args ...string) (string, string, error) {
		got = append([]string{name}, args...)
		if args[len(args)-1] == "missing" {
			return "", "E: Unable to locate package missing", errors.New("exit status 100")
		}
		return "done\n", "", nil
	}
	fn := tool(t, s, "install_package").Fn

	out, err := fn(context.Background(), []byte(`{"package_name":"w3m"}`))
	require.NoError(t, err)
	assert.Equal(t, "Successfully installed w3m.\nOutput: done\n", out)
	assert.Equal(t, []string{"sudo", "apt-get", "install", "-y", "w3m"}, got)

	out, err = fn(context.Background(), []byte(`{"package_name":"missing"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "Failed to install missing.\nError: E: Unable to locate package missing")

	out, err = fn(context.Background(), []byte(`{"package_name":"w3m; rm -rf /"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "invalid package name")

	s.goos = "darwin"
	out, err = fn(context.Background(), []byte(`{"package_name":"w3m"}`))
	require.NoError(t, err)
	assert.Equal(t, "Error: Package installation is only supported on Linux.", out)
}
