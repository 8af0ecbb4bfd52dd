package prompt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/collig/internal/logging"
	"github.com/soyeahso/collig/internal/skill"
)

type fakeCompleter struct {
	system, user string
	reply        string
	err          error
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.reply, f.err
}

func writeSkill(t *testing.T, dir, name, content string) string {
	t.Helper()
	sub := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(sub, 0o755))
	path := filepath.Join(sub, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFrontmatter(t *testing.T) {
	meta, body, err := parseFrontmatter("---\nname: Haiku Writer\ndescription: Writes haiku\n---\n\nYou write haiku.\n")
	require.NoError(t, err)
	assert.Equal(t, "Haiku Writer", meta.Name)
	assert.Equal(t, "Writes haiku", meta.Description)
	assert.Equal(t, "You write haiku.", body)
}

func TestParseFrontmatterErrors(t *testing.T) {
	_, _, err := parseFrontmatter("just text")
	assert.EqualError(t, err, "no frontmatter found")

	_, _, err = parseFrontmatter("---\nname: x\nbody")
	assert.EqualError(t, err, "unclosed frontmatter")

	_, _, err = parseFrontmatter("---\nname: [oops\n---\n")
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestNewDefaults(t *testing.T) {
	s := New(Metadata{Name: "Code Reviewer"}, "Review code.", nil)
	assert.Equal(t, "Code Reviewer", s.Name())
	assert.Equal(t, defaultDescription, s.Description())
	assert.Equal(t, []string{"code", "reviewer"}, s.Triggers())
	assert.Empty(t, s.RequiredConfig())

	s = New(Metadata{Name: "X", Triggers: []string{"custom phrase"}}, "", nil)
	assert.Equal(t, []string{"custom phrase"}, s.Triggers())
}

func TestExecute(t *testing.T) {
	llm := &fakeCompleter{reply: "an old silent pond"}
	s := New(Metadata{Name: "Haiku"}, "You write haiku.", llm)

	res, err := s.Execute(context.Background(), skill.Context{skill.MessageKey: "frogs"})
	require.NoError(t, err)
	assert.Equal(t, "an old silent pond", res.Response)
	assert.Equal(t, skill.ActionPromptResponse, res.Action)
	assert.Equal(t, "You write haiku.", llm.system)
	assert.Equal(t, "frogs", llm.user)
}

func TestExecuteError(t *testing.T) {
	s := New(Metadata{Name: "Haiku"}, "", &fakeCompleter{err: errors.New("boom")})
	res, err := s.Execute(context.Background(), skill.Context{skill.MessageKey: "hi"})
	require.NoError(t, err)
	assert.Equal(t, skill.ActionError, res.Action)
	assert.Equal(t, "Error executing skill 'Haiku': boom", res.Response)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "zeta", "---\nname: Zeta Helper\n---\nZ prompt")
	writeSkill(t, dir, "alpha", "---\nname: Alpha Helper\ndescription: First\n---\nA prompt")
	writeSkill(t, dir, "broken", "no frontmatter")
	writeSkill(t, dir, "nameless", "---\ndescription: no name\n---\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644))

	skills, err := Load(dir, &fakeCompleter{}, logging.New(nil, "silent"))
	require.NoError(t, err)
	require.Len(t, skills, 2)
	assert.Equal(t, "Alpha Helper", skills[0].Name())
	assert.Equal(t, "First", skills[0].Description())
	assert.Equal(t, "A prompt", skills[0].Content)
	assert.Equal(t, filepath.Join(dir, "alpha", FileName), skills[0].Path)
	assert.Equal(t, "Zeta Helper", skills[1].Name())

	var _ skill.Executor = skills[0]
}

func TestLoadMissingDir(t *testing.T) {
	skills, err := Load(filepath.Join(t.TempDir(), "nope"), nil, logging.New(nil, "silent"))
	require.NoError(t, err)
	assert.Empty(t, skills)
}
