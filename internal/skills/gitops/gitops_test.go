package gitops

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	cfg, err := repo.Config()
	require.NoError(t, err)
	cfg.User.Name = "Test User"
	cfg.User.Email = "test@example.com"
	require.NoError(t, repo.SetConfig(cfg))
	return dir
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func run(t *testing.T, s *Skill, name string, args map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	for _, tl := range s.Tools() {
		if tl.Name == name {
			out, err := tl.Fn(context.Background(), raw)
			require.NoError(t, err)
			return out
		}
	}
	t.Fatalf("no tool %s", name)
	return ""
}

func TestStatusAddCommitLog(t *testing.T) {
	dir := initRepo(t)
	s := New(nil)

	out := run(t, s, "git_status", map[string]any{"repo_path": dir})
	assert.Equal(t, "On branch master\nnothing to commit, working tree clean", out)
	assert.Equal(t, "No commits yet.", run(t, s, "git_log", map[string]any{"repo_path": dir}))

	write(t, dir, "a.txt", "one")
	write(t, dir, "sub/b.txt", "two")
	out = run(t, s, "git_status", map[string]any{"repo_path": dir})
	assert.Equal(t, "On branch master\n?? a.txt\n?? sub/b.txt", out)

	assert.Equal(t, "Staged: a.txt", run(t, s, "git_add", map[string]any{"repo_path": dir, "files": []string{"a.txt"}}))
	out = run(t, s, "git_status", map[string]any{"repo_path": dir})
	assert.Contains(t, out, "A  a.txt")
	assert.Contains(t, out, "?? sub/b.txt")

	out = run(t, s, "git_commit", map[string]any{"repo_path": dir, "message": "first"})
	assert.Regexp(t, `^\[master [0-9a-f]{7}\] first$`, out)

	assert.Equal(t, "Staged all changes.", run(t, s, "git_add", map[string]any{"repo_path": dir}))
	out = run(t, s, "git_commit", map[string]any{"repo_path": dir})
	assert.Contains(t, out, "] Update")

	out = run(t, s, "git_log", map[string]any{"repo_path": dir})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], " Update"))
	assert.True(t, strings.HasSuffix(lines[1], " first"))

	out = run(t, s, "git_log", map[string]any{"repo_path": dir, "max_count": 1})
	assert.NotContains(t, out, "\n")

	assert.Equal(t, "Nothing to commit.", run(t, s, "git_commit", map[string]any{"repo_path": dir, "message": "again"}))
}

func TestAddFromSubdirectory(t *testing.T) {
	dir := initRepo(t)
	write(t, dir, "sub/c.txt", "x")
	s := New(nil)

	out := run(t, s, "git_add", map[string]any{"repo_path": filepath.Join(dir, "sub"), "files": []string{"c.txt"}})
	assert.Equal(t, "Staged: c.txt", out)
	out = run(t, s, "git_status", map[string]any{"repo_path": dir})
	assert.Contains(t, out, "A  sub/c.txt")
}

func TestNotARepo(t *testing.T) {
	dir := t.TempDir()
	out := run(t, New(nil), "git_status", map[string]any{"repo_path": dir})
	assert.Equal(t, "Error: not a git repository: "+dir, out)

	out = run(t, New(nil), "git_status", map[string]any{"repo_path": filepath.Join(dir, "missing")})
	assert.Contains(t, out, "does not exist")
}

func TestAllowedRoots(t *testing.T) {
	allowed := initRepo(t)
	other := initRepo(t)
	s := New([]string{allowed})

	assert.Contains(t, run(t, s, "git_status", map[string]any{"repo_path": allowed}), "On branch")
	out := run(t, s, "git_status", map[string]any{"repo_path": other})
	assert.Equal(t, "Error: path is outside allowed directories: "+other, out)
}

func TestDiffAndPushUseCLI(t *testing.T) {
	dir := initRepo(t)
	s := New(nil)
	var calls [][]string
	s.run = func(_ context.Context, d string, args ...string) (string, string, error) {
		assert.Equal(t, dir, d)
		calls = append(calls, args)
		switch args[0] {
		case "diff":
			return "", "", nil
		case "push":
			if len(args) == 3 && args[2] == "broken" {
				return "", "error: src refspec broken does not match any\n", errors.New("exit status 1")
			}
			return "", "To github.com:me/repo.git\n", nil
		}
		return "", "", nil
	}

	assert.Equal(t, "Success (no output)", run(t, s, "git_diff", map[string]any{"repo_path": dir}))
	assert.Equal(t, "To github.com:me/repo.git", run(t, s, "git_push", map[string]any{"repo_path": dir}))
	assert.Equal(t, "Error: error: src refspec broken does not match any",
		run(t, s, "git_push", map[string]any{"repo_path": dir, "remote": "up", "branch": "broken"}))
	assert.Equal(t, "Error: invalid remote or branch \"--force\"",
		run(t, s, "git_push", map[string]any{"repo_path": dir, "branch": "--force"}))

	assert.Equal(t, [][]string{{"diff"}, {"push", "origin"}, {"push", "up", "broken"}}, calls)
}
