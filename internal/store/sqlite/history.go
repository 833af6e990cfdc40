package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/momentum-sync/internal/model"
)

// ReadHistory returns sync events in stored order (most recent first).
func (db *DB) ReadHistory(ctx context.Context) ([]model.HistoryEntry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, type, sync_code, timestamp, device_info
		 FROM sync_history
		 ORDER BY position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading history: %w", err)
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		if err := rows.Scan(&e.ID, &e.Type, &e.SyncCode, &e.Timestamp, &e.DeviceInfo); err != nil {
			return nil, fmt.Errorf("sqlite: scanning history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating history: %w", err)
	}

	return entries, nil
}

// WriteHistory replaces the stored history. The service keeps the list
// capped, so a full rewrite stays cheap.
func (db *DB) WriteHistory(ctx context.Context, entries []model.HistoryEntry) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning history write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sync_history`); err != nil {
		return fmt.Errorf("sqlite: clearing history: %w", err)
	}

	for i, e := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sync_history (position, id, type, sync_code, timestamp, device_info)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			i, e.ID, e.Type, e.SyncCode, e.Timestamp, e.DeviceInfo,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting history entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing history write: %w", err)
	}
	return nil
}
