// Package store provides the SQLite-backed relational store for projects,
// artifacts, pool items, consents, settings, chats, events, and the profile.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	created_at_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS artifacts (
	id            TEXT PRIMARY KEY,
	project_id    TEXT NOT NULL,
	kind          TEXT NOT NULL,
	path          TEXT NOT NULL,
	created_at_ms INTEGER NOT NULL,
	FOREIGN KEY(project_id) REFERENCES projects(id)
);
CREATE INDEX IF NOT EXISTS idx_artifacts_project_id ON artifacts(project_id);

CREATE TABLE IF NOT EXISTS consents (
	project_id    TEXT PRIMARY KEY,
	consented     INTEGER NOT NULL DEFAULT 0,
	auto_confirm  INTEGER NOT NULL DEFAULT 0,
	updated_at_ms INTEGER NOT NULL,
	FOREIGN KEY(project_id) REFERENCES projects(id)
);

CREATE TABLE IF NOT EXISTS project_settings (
	project_id    TEXT PRIMARY KEY,
	think_enabled INTEGER NOT NULL DEFAULT 1,
	updated_at_ms INTEGER NOT NULL,
	FOREIGN KEY(project_id) REFERENCES projects(id)
);

CREATE TABLE IF NOT EXISTS pool_items (
	id            TEXT PRIMARY KEY,
	project_id    TEXT NOT NULL,
	kind          TEXT NOT NULL,
	title         TEXT,
	source_url    TEXT,
	license       TEXT,
	dedup_key     TEXT NOT NULL,
	data_json     TEXT,
	selected      INTEGER NOT NULL DEFAULT 1,
	created_at_ms INTEGER NOT NULL,
	FOREIGN KEY(project_id) REFERENCES projects(id)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_pool_items_dedup ON pool_items(project_id, dedup_key);
CREATE INDEX IF NOT EXISTS idx_pool_items_project_id ON pool_items(project_id);

CREATE TABLE IF NOT EXISTS profile (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	summary       TEXT NOT NULL,
	updated_at_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id TEXT NOT NULL,
	ts_ms      INTEGER NOT NULL,
	level      TEXT NOT NULL,
	message    TEXT NOT NULL,
	data_json  TEXT,
	FOREIGN KEY(project_id) REFERENCES projects(id)
);
CREATE INDEX IF NOT EXISTS idx_events_project_id ON events(project_id);

CREATE TABLE IF NOT EXISTS chats (
	id            TEXT PRIMARY KEY,
	project_id    TEXT NOT NULL,
	title         TEXT NOT NULL,
	created_at_ms INTEGER NOT NULL,
	FOREIGN KEY(project_id) REFERENCES projects(id)
);
CREATE INDEX IF NOT EXISTS idx_chats_project_id ON chats(project_id);

CREATE TABLE IF NOT EXISTS chat_messages (
	id            TEXT PRIMARY KEY,
	project_id    TEXT NOT NULL,
	chat_id       TEXT NOT NULL,
	role          TEXT NOT NULL,
	content       TEXT NOT NULL,
	data_json     TEXT,
	created_at_ms INTEGER NOT NULL,
	FOREIGN KEY(project_id) REFERENCES projects(id),
	FOREIGN KEY(chat_id) REFERENCES chats(id)
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_chat_id ON chat_messages(chat_id);
CREATE INDEX IF NOT EXISTS idx_chat_messages_project_id ON chat_messages(project_id);
`

// DB wraps a sql.DB with store-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	// Sqlite tolerates a single writer; serialising through one connection
	// keeps every read-then-write sequence atomic across requests.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
