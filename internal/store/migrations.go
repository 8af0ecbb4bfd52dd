package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create notes with FTS5",
		SQL: `
			CREATE TABLE notes (
				id          TEXT PRIMARY KEY,
				content     TEXT NOT NULL,
				session_id  TEXT NOT NULL DEFAULT '',
				created_at  TEXT NOT NULL
			);

			CREATE INDEX idx_notes_created ON notes (created_at);

			CREATE VIRTUAL TABLE notes_fts USING fts5(
				content,
				content='notes',
				content_rowid='rowid'
			);

			CREATE TRIGGER notes_ai AFTER INSERT ON notes BEGIN
				INSERT INTO notes_fts(rowid, content) VALUES (new.rowid, new.content);
			END;

			CREATE TRIGGER notes_ad AFTER DELETE ON notes BEGIN
				INSERT INTO notes_fts(notes_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
			END;
		`,
	},
	{
		Version: 2,
		Name:    "create bookmarks with FTS5",
		SQL: `
			CREATE TABLE bookmarks (
				id           TEXT PRIMARY KEY,
				url          TEXT NOT NULL,
				description  TEXT NOT NULL DEFAULT '',
				tags         TEXT NOT NULL DEFAULT '',
				created_at   TEXT NOT NULL
			);

			CREATE INDEX idx_bookmarks_created ON bookmarks (created_at);

			CREATE VIRTUAL TABLE bookmarks_fts USING fts5(
				url,
				description,
				tags,
				content='bookmarks',
				content_rowid='rowid'
			);

			CREATE TRIGGER bookmarks_ai AFTER INSERT ON bookmarks BEGIN
				INSERT INTO bookmarks_fts(rowid, url, description, tags)
				VALUES (new.rowid, new.url, new.description, new.tags);
			END;

			CREATE TRIGGER bookmarks_ad AFTER DELETE ON bookmarks BEGIN
				INSERT INTO bookmarks_fts(bookmarks_fts, rowid, url, description, tags)
				VALUES ('delete', old.rowid, old.url, old.description, old.tags);
			END;
		`,
	},
	{
		Version: 3,
		Name:    "create profile with FTS5",
		SQL: `
			CREATE TABLE profile (
				key         TEXT PRIMARY KEY,
				value       TEXT NOT NULL,
				category    TEXT NOT NULL DEFAULT 'general',
				updated_at  TEXT NOT NULL
			);

			CREATE VIRTUAL TABLE profile_fts USING fts5(
				key,
				value,
				category,
				content='profile',
				content_rowid='rowid'
			);

			CREATE TRIGGER profile_ai AFTER INSERT ON profile BEGIN
				INSERT INTO profile_fts(rowid, key, value, category)
				VALUES (new.rowid, new.key, new.value, new.category);
			END;

			CREATE TRIGGER profile_ad AFTER DELETE ON profile BEGIN
				INSERT INTO profile_fts(profile_fts, rowid, key, value, category)
				VALUES ('delete', old.rowid, old.key, old.value, old.category);
			END;

			CREATE TRIGGER profile_au AFTER UPDATE ON profile BEGIN
				INSERT INTO profile_fts(profile_fts, rowid, key, value, category)
				VALUES ('delete', old.rowid, old.key, old.value, old.category);
				INSERT INTO profile_fts(rowid, key, value, category)
				VALUES (new.rowid, new.key, new.value, new.category);
			END;
		`,
	},
}
