package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Note is a saved personal note.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	SessionID string    `json:"sessionId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NoteStore manages notes with full-text search via SQLite FTS5.
type NoteStore struct {
	db  *DB
	now func() time.Time
}

// NewNoteStore creates a note store using the given database.
func NewNoteStore(db *DB) *NoteStore {
	return &NoteStore{db: db, now: time.Now}
}

// Add saves a note.
func (s *NoteStore) Add(content, sessionID string) (*Note, error) {
	n := Note{ID: uuid.NewString(), Content: content, SessionID: sessionID, CreatedAt: s.now()}
	_, err := s.db.sql.Exec(
		`INSERT INTO notes (id, content, session_id, created_at) VALUES (?, ?, ?, ?)`,
		n.ID, n.Content, n.SessionID, formatTime(n.CreatedAt),
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Recent returns the newest notes first. Limit of 0 defaults to 10.
func (s *NoteStore) Recent(limit int) ([]Note, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.sql.Query(
		`SELECT id, content, session_id, created_at FROM notes
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotes(rows)
}

// Search finds notes matching query, best match first. Limit of 0 defaults to 3.
func (s *NoteStore) Search(query string, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = 3
	}
	q := ftsQuery(query)
	if q == "" {
		return s.searchLike(query, limit)
	}
	rows, err := s.db.sql.Query(
		`SELECT n.id, n.content, n.session_id, n.created_at
		 FROM notes_fts
		 JOIN notes n ON n.rowid = notes_fts.rowid
		 WHERE notes_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotes(rows)
}

// searchLike is the substring fallback for queries with no indexable words.
func (s *NoteStore) searchLike(query string, limit int) ([]Note, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	rows, err := s.db.sql.Query(
		`SELECT id, content, session_id, created_at FROM notes
		 WHERE content LIKE ? ESCAPE '\'
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotes(rows)
}

// Delete removes notes by id and reports how many existed.
func (s *NoteStore) Delete(ids ...string) (int, error) {
	return deleteByID(s.db, "notes", ids)
}

func scanNotes(rows *sql.Rows) ([]Note, error) {
	var notes []Note
	for rows.Next() {
		var n Note
		var createdAt string
		if err := rows.Scan(&n.ID, &n.Content, &n.SessionID, &createdAt); err != nil {
			return nil, err
		}
		n.CreatedAt = parseTime(createdAt)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func deleteByID(db *DB, table string, ids []string) (int, error) {
	tx, err := db.sql.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	deleted := 0
	for _, id := range ids {
		res, err := tx.Exec(`DELETE FROM `+table+` WHERE id = ?`, id)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		deleted += int(n)
	}
	return deleted, tx.Commit()
}
