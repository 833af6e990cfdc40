// Package store defines the device-local persistence interface.
//
// The sync engine reads and writes three documents: the tracker snapshot
// (the user's data), the sync code registry (code → blob mappings), and the
// sync history (recent export/import events). Each document is small and
// replaced wholesale on write, so the interface is read/replace rather than
// per-row CRUD. Implementations live in the sqlite and memory subpackages.
package store

import (
	"context"

	"github.com/sakif/momentum-sync/internal/model"
)

// LocalStore is the device-local persistence used by the sync service.
type LocalStore interface {
	// ReadSnapshot returns the stored tracker snapshot, or
	// apperror.ErrNotFound when the device has no data yet.
	ReadSnapshot(ctx context.Context) (*model.Snapshot, error)

	// ReplaceSnapshot overwrites the stored snapshot.
	ReplaceSnapshot(ctx context.Context, snapshot *model.Snapshot) error

	// ReadRegistry returns all code → blob mappings, expired ones included.
	// An empty registry is a normal result, not an error.
	ReadRegistry(ctx context.Context) (map[string]model.SyncMapping, error)

	// WriteRegistry replaces the full set of mappings.
	WriteRegistry(ctx context.Context, mappings map[string]model.SyncMapping) error

	// ReadHistory returns sync events, most recent first.
	ReadHistory(ctx context.Context) ([]model.HistoryEntry, error)

	// WriteHistory replaces the stored history with the given entries,
	// preserving their order.
	WriteHistory(ctx context.Context, entries []model.HistoryEntry) error
}
