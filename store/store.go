// Package store provides the SQLite wrapper shared by the memory and
// governor packages. The budget/gate engine itself never touches it — all
// I/O stays outside the enforcement path.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps *sql.DB and provides migration support.
type DB struct {
	*sql.DB
}

// New opens a SQLite connection with WAL mode and foreign keys enabled.
// Driver name is "sqlite" (modernc.org/sqlite, not mattn/go-sqlite3).
func New(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_journal=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store.New: open: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("store.New: ping: %w", err)
	}
	// Limit to 1 writer at a time to avoid SQLITE_BUSY in WAL mode.
	sqlDB.SetMaxOpenConns(1)
	return &DB{sqlDB}, nil
}

const ddlMemories = `
CREATE TABLE IF NOT EXISTS memories (
	id              TEXT PRIMARY KEY,
	content         TEXT NOT NULL,
	tags            TEXT DEFAULT '[]',
	source          TEXT DEFAULT 'manual',
	created_at      TEXT NOT NULL,
	conversation_id TEXT DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);`

const ddlTokenUsage = `
CREATE TABLE IF NOT EXISTS token_usage (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL,
	input_tokens    INTEGER NOT NULL DEFAULT 0,
	output_tokens   INTEGER NOT NULL DEFAULT 0,
	date            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_token_usage_conv_date ON token_usage(conversation_id, date);`

const ddlTokenBudgets = `
CREATE TABLE IF NOT EXISTS token_budgets (
	conversation_id TEXT PRIMARY KEY,
	daily_limit     INTEGER NOT NULL,
	yellow_pct      INTEGER NOT NULL DEFAULT 60,
	orange_pct      INTEGER NOT NULL DEFAULT 80,
	red_pct         INTEGER NOT NULL DEFAULT 90
);`

// Migrate runs all CREATE TABLE IF NOT EXISTS migrations. Idempotent.
func (d *DB) Migrate() error {
	for _, ddl := range []string{ddlMemories, ddlTokenUsage, ddlTokenBudgets} {
		if _, err := d.Exec(ddl); err != nil {
			return fmt.Errorf("store.Migrate: %w", err)
		}
	}
	return nil
}
