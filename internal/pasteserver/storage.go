package pasteserver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/momentum-sync/internal/apperror"

	_ "modernc.org/sqlite"
)

// paste is one stored blob. Content is opaque to the server; clients upload
// pure ciphertext.
type paste struct {
	ID        string
	Content   string
	CreatedAt int64 // epoch ms
	ExpiresAt int64 // epoch ms
}

// Storage persists pastes in SQLite. Retention is lazy: expired rows are
// invisible to Get and swept opportunistically on every insert, so the table
// stays small without a background job.
type Storage struct {
	conn      *sql.DB
	retention time.Duration
}

// NewStorage opens (or creates) the paste database. Use ":memory:" in tests.
func NewStorage(dbPath string, retention time.Duration) (*Storage, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("pasteserver: opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pasteserver: pinging database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pasteserver: setting WAL mode: %w", err)
	}

	_, err = conn.Exec(`
		CREATE TABLE IF NOT EXISTS pastes (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_pastes_expires_at ON pastes(expires_at);
	`)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("pasteserver: creating pastes table: %w", err)
	}

	return &Storage{conn: conn, retention: retention}, nil
}

// Close closes the connection pool.
func (s *Storage) Close() error {
	return s.conn.Close()
}

// Insert stores content under a fresh unguessable id and returns the paste.
// Each insert also sweeps rows that outlived the retention window.
func (s *Storage) Insert(ctx context.Context, content string) (*paste, error) {
	now := time.Now()
	p := &paste{
		ID:        xid.New().String(),
		Content:   content,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(s.retention).UnixMilli(),
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO pastes (id, content, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Content, p.CreatedAt, p.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("pasteserver: inserting paste: %w", err)
	}

	// Best-effort sweep. A failure here must not fail the insert.
	_, _ = s.conn.ExecContext(ctx,
		`DELETE FROM pastes WHERE expires_at < ?`, now.UnixMilli())

	return p, nil
}

// Get returns a paste by id. Expired pastes are indistinguishable from ones
// that never existed.
func (s *Storage) Get(ctx context.Context, id string) (*paste, error) {
	var p paste
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, content, created_at, expires_at
		 FROM pastes
		 WHERE id = ? AND expires_at >= ?`,
		id, time.Now().UnixMilli(),
	).Scan(&p.ID, &p.Content, &p.CreatedAt, &p.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("paste", id)
		}
		return nil, fmt.Errorf("pasteserver: getting paste %s: %w", id, err)
	}
	return &p, nil
}

// Delete removes a paste by id, failing with ErrNotFound when nothing was
// there to delete.
func (s *Storage) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM pastes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("pasteserver: deleting paste %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("pasteserver: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("paste", id)
	}
	return nil
}
