package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Bookmark is a saved URL.
type Bookmark struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Tags        string    `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BookmarkStore manages bookmarks with full-text search via SQLite FTS5.
type BookmarkStore struct {
	db  *DB
	now func() time.Time
}

// NewBookmarkStore creates a bookmark store using the given database.
func NewBookmarkStore(db *DB) *BookmarkStore {
	return &BookmarkStore{db: db, now: time.Now}
}

// Add saves a bookmark.
func (s *BookmarkStore) Add(url, description, tags string) (*Bookmark, error) {
	b := Bookmark{ID: uuid.NewString(), URL: url, Description: description, Tags: tags, CreatedAt: s.now()}
	_, err := s.db.sql.Exec(
		`INSERT INTO bookmarks (id, url, description, tags, created_at) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.URL, b.Description, b.Tags, formatTime(b.CreatedAt),
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// List returns the newest bookmarks first. Limit of 0 defaults to 10.
func (s *BookmarkStore) List(limit int) ([]Bookmark, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.sql.Query(
		`SELECT id, url, description, tags, created_at FROM bookmarks
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookmarks(rows)
}

// Search finds bookmarks by url, description or tags. Limit of 0 defaults to 5.
func (s *BookmarkStore) Search(query string, limit int) ([]Bookmark, error) {
	if limit <= 0 {
		limit = 5
	}
	q := ftsQuery(query)
	if q == "" {
		return nil, nil
	}
	rows, err := s.db.sql.Query(
		`SELECT b.id, b.url, b.description, b.tags, b.created_at
		 FROM bookmarks_fts
		 JOIN bookmarks b ON b.rowid = bookmarks_fts.rowid
		 WHERE bookmarks_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookmarks(rows)
}

// Delete removes bookmarks by id and reports how many existed.
func (s *BookmarkStore) Delete(ids ...string) (int, error) {
	return deleteByID(s.db, "bookmarks", ids)
}

func scanBookmarks(rows *sql.Rows) ([]Bookmark, error) {
	var out []Bookmark
	for rows.Next() {
		var b Bookmark
		var createdAt string
		if err := rows.Scan(&b.ID, &b.URL, &b.Description, &b.Tags, &createdAt); err != nil {
			return nil, err
		}
		b.CreatedAt = parseTime(createdAt)
		out = append(out, b)
	}
	return out, rows.Err()
}
