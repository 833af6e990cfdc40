package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/momentum-sync/internal/model"
)

// ReadRegistry loads every code → blob mapping, expired ones included.
// Expiry is a registry policy, not a storage concern.
func (db *DB) ReadRegistry(ctx context.Context) (map[string]model.SyncMapping, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT code, blob_id, created_at, expires_at FROM sync_mappings`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading registry: %w", err)
	}
	defer rows.Close()

	mappings := make(map[string]model.SyncMapping)
	for rows.Next() {
		var m model.SyncMapping
		if err := rows.Scan(&m.Code, &m.BlobID, &m.CreatedAt, &m.ExpiresAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning mapping row: %w", err)
		}
		mappings[m.Code] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating mappings: %w", err)
	}

	return mappings, nil
}

// WriteRegistry replaces the full mapping set in one transaction, so a
// crash mid-write never leaves a half-updated registry.
func (db *DB) WriteRegistry(ctx context.Context, mappings map[string]model.SyncMapping) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning registry write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sync_mappings`); err != nil {
		return fmt.Errorf("sqlite: clearing registry: %w", err)
	}

	for _, m := range mappings {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sync_mappings (code, blob_id, created_at, expires_at)
			 VALUES (?, ?, ?, ?)`,
			m.Code, m.BlobID, m.CreatedAt, m.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting mapping %s: %w", m.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing registry write: %w", err)
	}
	return nil
}
