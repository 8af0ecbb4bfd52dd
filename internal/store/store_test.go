package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/soyeahso/collig/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// ticker returns a clock that advances one minute per call.
func ticker() func() time.Time {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestOpen_FileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "collig.db")
	db, err := Open(path, logging.New(nil, "silent"))
	require.NoError(t, err)
	require.NoError(t, db.Close())
	assert.FileExists(t, path)
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.migrate())

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{"notes", "notes_fts", "bookmarks", "bookmarks_fts", "profile", "profile_fts"}
	for _, table := range tables {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestFTSQuery(t *testing.T) {
	assert.Equal(t, `"python"* OR "tips"*`, ftsQuery("Python tips!"))
	assert.Equal(t, `"don"* OR "t"*`, ftsQuery(`don't`))
	assert.Empty(t, ftsQuery(`  "*()  `))
}

// --- Notes ---

func TestNotes_AddAndRecent(t *testing.T) {
	s := NewNoteStore(testDB(t))
	s.now = ticker()

	for _, c := range []string{"first", "second", "third"} {
		_, err := s.Add(c, "s1")
		require.NoError(t, err)
	}

	notes, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "third", notes[0].Content)
	assert.Equal(t, "second", notes[1].Content)
	assert.Equal(t, "s1", notes[0].SessionID)
	assert.Equal(t, 2025, notes[0].CreatedAt.Year())
}

func TestNotes_Search(t *testing.T) {
	s := NewNoteStore(testDB(t))

	_, err := s.Add("Buy oat milk on Friday", "")
	require.NoError(t, err)
	_, err = s.Add("Dentist appointment next Tuesday", "")
	require.NoError(t, err)

	found, err := s.Search("milk", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Content, "oat milk")

	// Punctuation in the query must not break the FTS parser.
	found, err = s.Search(`dentist"?`, 0)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = s.Search("!!!", 0)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestNotes_Delete(t *testing.T) {
	s := NewNoteStore(testDB(t))

	n, err := s.Add("remove me", "")
	require.NoError(t, err)

	deleted, err := s.Delete(n.ID, "missing")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	found, err := s.Search("remove", 0)
	require.NoError(t, err)
	assert.Empty(t, found, "FTS index should drop deleted rows")
}

// --- Bookmarks ---

func TestBookmarks_AddListSearchDelete(t *testing.T) {
	s := NewBookmarkStore(testDB(t))
	s.now = ticker()

	a, err := s.Add("https://go.dev/doc", "Go documentation", "golang,docs")
	require.NoError(t, err)
	_, err = s.Add("https://sqlite.org/fts5.html", "Full text search", "database")
	require.NoError(t, err)

	list, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "https://sqlite.org/fts5.html", list[0].URL)

	found, err := s.Search("golang", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)

	found, err = s.Search("search", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "database", found[0].Tags)

	deleted, err := s.Delete(a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	list, err = s.List(0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// --- Profile ---

func TestProfile_SetUpserts(t *testing.T) {
	s := NewProfileStore(testDB(t))

	require.NoError(t, s.Set("favorite_color", "blue", ""))
	require.NoError(t, s.Set("favorite_color", "green", "preferences"))

	e, err := s.Get("favorite_color")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "green", e.Value)
	assert.Equal(t, "preferences", e.Category)

	all, err := s.All()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestProfile_DefaultCategoryAndMissing(t *testing.T) {
	s := NewProfileStore(testDB(t))

	require.NoError(t, s.Set("name", "Ada", ""))
	e, err := s.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "general", e.Category)

	e, err = s.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestProfile_SearchAfterUpdate(t *testing.T) {
	s := NewProfileStore(testDB(t))

	require.NoError(t, s.Set("city", "Lisbon", "location"))
	require.NoError(t, s.Set("city", "Porto", "location"))
	require.NoError(t, s.Set("pet", "cat named Miso", "family"))

	found, err := s.Search("lisbon", 0)
	require.NoError(t, err)
	assert.Empty(t, found, "old value should be gone from the index")

	found, err = s.Search("where is my city", 0)
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, "Porto", found[0].Value)

	found, err = s.Search("cat", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "pet", found[0].Key)
}

func TestNotes_SearchFallsBackToSubstring(t *testing.T) {
	s := NewNoteStore(testDB(t))

	_, err := s.Add("remember: ->> is the JSON operator", "")
	require.NoError(t, err)

	found, err := s.Search("->>", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = s.Search("%", 0)
	require.NoError(t, err)
	assert.Empty(t, found, "wildcards are matched literally")
}
