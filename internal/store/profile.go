package store

import (
	"database/sql"
	"strings"
	"time"
)

// ProfileEntry is one attribute of the user's personal profile.
type ProfileEntry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Category  string    `json:"category"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProfileStore keeps one value per attribute key.
type ProfileStore struct {
	db  *DB
	now func() time.Time
}

// NewProfileStore creates a profile store using the given database.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db, now: time.Now}
}

// Set inserts or replaces the value for key.
func (s *ProfileStore) Set(key, value, category string) error {
	key = strings.TrimSpace(key)
	if category == "" {
		category = "general"
	}
	_, err := s.db.sql.Exec(
		`INSERT INTO profile (key, value, category, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   category = excluded.category,
		   updated_at = excluded.updated_at`,
		key, value, category, formatTime(s.now()),
	)
	return err
}

// Get returns the entry for key, or nil when unset.
func (s *ProfileStore) Get(key string) (*ProfileEntry, error) {
	rows, err := s.db.sql.Query(
		`SELECT key, value, category, updated_at FROM profile WHERE key = ?`, strings.TrimSpace(key))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries, err := scanProfile(rows)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

// Search matches query against keys, values and categories. Limit of 0
// defaults to 3.
func (s *ProfileStore) Search(query string, limit int) ([]ProfileEntry, error) {
	if limit <= 0 {
		limit = 3
	}
	q := ftsQuery(query)
	if q == "" {
		return nil, nil
	}
	rows, err := s.db.sql.Query(
		`SELECT p.key, p.value, p.category, p.updated_at
		 FROM profile_fts
		 JOIN profile p ON p.rowid = profile_fts.rowid
		 WHERE profile_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProfile(rows)
}

// All returns every entry ordered by key.
func (s *ProfileStore) All() ([]ProfileEntry, error) {
	rows, err := s.db.sql.Query(`SELECT key, value, category, updated_at FROM profile ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProfile(rows)
}

func scanProfile(rows *sql.Rows) ([]ProfileEntry, error) {
	var out []ProfileEntry
	for rows.Next() {
		var e ProfileEntry
		var updatedAt string
		if err := rows.Scan(&e.Key, &e.Value, &e.Category, &updatedAt); err != nil {
			return nil, err
		}
		e.UpdatedAt = parseTime(updatedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
