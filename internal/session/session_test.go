package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/collig/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "sessions"), logging.New(nil, "silent"))
	require.NoError(t, err)
	return s
}

func TestCreate_EmptyHistory(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Create()
	require.NoError(t, err)

	_, err = uuid.Parse(id)
	assert.NoError(t, err)
	assert.Empty(t, s.History(id))

	sess, err := s.Load(id)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, id, sess.ID)
	assert.False(t, sess.CreatedAt.IsZero())
}

func TestAppend_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Create()
	require.NoError(t, err)

	turns := []struct{ role, content string }{
		{RoleUser, "hello"},
		{RoleAssistant, "hi there"},
		{RoleUser, "multi\nline \"quoted\" ✓"},
		{RoleAssistant, ""},
	}
	for _, turn := range turns {
		require.NoError(t, s.Append(id, turn.role, turn.content))
	}

	hist := s.History(id)
	require.Len(t, hist, len(turns))
	for i, turn := range turns {
		assert.Equal(t, turn.role, hist[i].Role)
		assert.Equal(t, turn.content, hist[i].Content)
	}
	for i := 1; i < len(hist); i++ {
		assert.False(t, hist[i].Timestamp.Before(hist[i-1].Timestamp))
	}
}

func TestAppend_TimestampsNeverGoBackwards(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := []time.Time{base, base.Add(time.Minute), base.Add(-time.Hour)}
	s.now = func() time.Time {
		t := clock[0]
		if len(clock) > 1 {
			clock = clock[1:]
		}
		return t
	}

	require.NoError(t, s.Append("s1", RoleUser, "a"))
	require.NoError(t, s.Append("s1", RoleUser, "b"))

	hist := s.History("s1")
	require.Len(t, hist, 2)
	assert.Equal(t, hist[0].Timestamp, hist[1].Timestamp)
}

func TestAppend_RecreatesMissingSession(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Append("s1", RoleUser, "hello"))

	sess, err := s.Load("s1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "s1", sess.ID)
	require.Len(t, sess.Messages, 1)
}

func TestAppend_RecreatesCorruptSession(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "bad.json"), []byte("{oops"), 0o600))

	_, err := s.Load("bad")
	assert.Error(t, err)
	assert.Empty(t, s.History("bad"))

	require.NoError(t, s.Append("bad", RoleUser, "recovered"))
	hist := s.History("bad")
	require.Len(t, hist, 1)
	assert.Equal(t, "recovered", hist[0].Content)
}

func TestLoad_Absent(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.Load("nope")
	assert.NoError(t, err)
	assert.Nil(t, sess)
	assert.Empty(t, s.History("nope"))
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := s.Create()
	require.NoError(t, err)
	sess, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID)
}

func TestClear_KeepsIDUsable(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Create()
	require.NoError(t, err)
	require.NoError(t, s.Append(id, RoleUser, "one"))
	before, _ := s.Load(id)

	require.NoError(t, s.Clear(id))
	assert.Empty(t, s.History(id))

	after, err := s.Load(id)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt))

	require.NoError(t, s.Append(id, RoleUser, "two"))
	assert.Len(t, s.History(id), 1)
}

func TestFileFormat(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Append("fmt", RoleUser, "hello"))

	data, err := os.ReadFile(filepath.Join(s.Dir(), "fmt.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"id\": \"fmt\",\n  \"created_at\": "))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	msgs := raw["messages"].([]any)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	_, err = time.Parse(time.RFC3339, msg["timestamp"].(string))
	assert.NoError(t, err)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestInvalidIDs(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"", "../escape", "a/b", ".hidden"} {
		assert.ErrorIs(t, s.Append(id, RoleUser, "x"), ErrInvalidID, id)
	}
}

func TestListAndDelete(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s.now = func() time.Time { return now }

	old, err := s.Create()
	require.NoError(t, err)
	now = base.Add(time.Hour)
	newer, err := s.Create()
	require.NoError(t, err)
	require.NoError(t, s.Append(newer, RoleUser, "hi"))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "junk.json"), []byte("nope"), 0o600))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer, list[0].ID)
	assert.Equal(t, 1, list[0].MessageCount)
	assert.Equal(t, old, list[1].ID)
	assert.Equal(t, 0, list[1].MessageCount)

	require.NoError(t, s.Delete(old))
	require.NoError(t, s.Delete(old))
	list, err = s.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
