// Package sqlite implements store.LocalStore on an embedded SQLite database.
//
// WHY SQLITE FOR A SYNC CACHE?
// The store holds three small documents per device: the tracker snapshot,
// the sync code registry, and the sync history. A single-file embedded
// database gives us atomic replacement of each document without a server
// process, and ":memory:" gives tests a free throwaway store.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary
// cross-compiles without a C toolchain.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements store.LocalStore.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for a throwaway store in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets a status read proceed while a sync write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Defer it wherever New is called.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent,
// so it is safe to run on every startup.
func (db *DB) migrate() error {
	// The snapshot is one JSON document. The CHECK constraint pins the
	// table to a single row so ReplaceSnapshot is a plain UPSERT.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			data       TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating snapshot table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sync_mappings (
			code       TEXT PRIMARY KEY,
			blob_id    TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sync_mappings_expires_at
			ON sync_mappings(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("creating sync_mappings table: %w", err)
	}

	// position preserves the caller's ordering (most recent first);
	// timestamps alone can collide within a millisecond.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sync_history (
			position    INTEGER PRIMARY KEY,
			id          TEXT NOT NULL,
			type        TEXT NOT NULL,
			sync_code   TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			device_info TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return fmt.Errorf("creating sync_history table: %w", err)
	}

	return nil
}
