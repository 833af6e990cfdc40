package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sakif/momentum-sync/internal/apperror"
	"github.com/sakif/momentum-sync/internal/model"
	"github.com/sakif/momentum-sync/internal/store"
)

// Compile-time check that *DB satisfies the store interface.
var _ store.LocalStore = (*DB)(nil)

// ReadSnapshot loads the device's tracker snapshot.
func (db *DB) ReadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	var data string
	err := db.conn.QueryRowContext(ctx,
		`SELECT data FROM snapshot WHERE id = 1`,
	).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snapshot", "local")
		}
		return nil, fmt.Errorf("sqlite: reading snapshot: %w", err)
	}

	var snapshot model.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("sqlite: decoding snapshot: %w", err)
	}
	return &snapshot, nil
}

// ReplaceSnapshot overwrites the stored snapshot atomically.
func (db *DB) ReplaceSnapshot(ctx context.Context, snapshot *model.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("sqlite: encoding snapshot: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO snapshot (id, data, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET data = excluded.data,
		                                updated_at = excluded.updated_at`,
		string(data), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: replacing snapshot: %w", err)
	}
	return nil
}
