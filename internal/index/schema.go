// Package index provides SQLite-backed persistence for audit runs, with
// optional FTS5 full-text search over note bodies.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id       TEXT PRIMARY KEY,
	path     TEXT NOT NULL,
	section  INTEGER NOT NULL DEFAULT 1,
	title    TEXT NOT NULL DEFAULT '',
	role     TEXT NOT NULL DEFAULT '',
	checksum TEXT NOT NULL DEFAULT '',
	body     TEXT NOT NULL DEFAULT '',
	frontmatter TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS edges (
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	kind   TEXT NOT NULL,
	UNIQUE(source, target, kind)
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target);

CREATE TABLE IF NOT EXISTS findings (
	kind    TEXT NOT NULL,
	note_id TEXT NOT NULL DEFAULT '',
	target  TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS reports (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	json         TEXT NOT NULL,
	generated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
