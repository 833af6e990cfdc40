// Package registry maps sync codes to remote blob identifiers.
//
// A mapping is created when a device exports and consumed when another
// device (or the same one) imports. Mappings live 48 hours, matching the
// retention the anonymous paste backends promise, and are evicted lazily:
// every write sweeps expired entries, and resolving an expired code deletes
// it on the spot.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/momentum-sync/internal/apperror"
	"github.com/sakif/momentum-sync/internal/crypto"
	"github.com/sakif/momentum-sync/internal/model"
	"github.com/sakif/momentum-sync/internal/store"
)

// TTL is how long a sync code stays resolvable after export.
const TTL = 48 * time.Hour

// Registry persists code → blob mappings through a LocalStore.
type Registry struct {
	// mu serializes read-modify-write cycles against the store. The store
	// guards individual operations, but Register and Resolve both read the
	// full registry, change it, and write it back.
	mu     sync.Mutex
	store  store.LocalStore
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Registry backed by the given store.
func New(st store.LocalStore, logger *slog.Logger) *Registry {
	return &Registry{store: st, logger: logger, now: time.Now}
}

// newWithClock is used by tests to control expiry.
func newWithClock(st store.LocalStore, logger *slog.Logger, now func() time.Time) *Registry {
	return &Registry{store: st, logger: logger, now: now}
}

// Register records that code resolves to blobID for the next 48 hours.
// The code is normalized before storage, so "abcd-1234" and "ABCD1234"
// register the same entry. Expired mappings are swept as part of the write.
func (r *Registry) Register(ctx context.Context, code, blobID string) (model.SyncMapping, error) {
	normalized := crypto.NormalizeSyncCode(code)
	if !crypto.ValidateSyncCode(normalized) {
		return model.SyncMapping{}, apperror.InvalidCode("invalid sync code format")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	mappings, err := r.store.ReadRegistry(ctx)
	if err != nil {
		return model.SyncMapping{}, fmt.Errorf("registry: reading mappings: %w", err)
	}

	now := r.now()
	swept := r.sweep(mappings, now)

	mapping := model.SyncMapping{
		Code:      normalized,
		BlobID:    blobID,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(TTL).UnixMilli(),
	}
	mappings[normalized] = mapping

	if err := r.store.WriteRegistry(ctx, mappings); err != nil {
		return model.SyncMapping{}, fmt.Errorf("registry: writing mappings: %w", err)
	}

	r.logger.Info("sync code registered",
		slog.String("code", crypto.FormatSyncCode(normalized)),
		slog.String("blobId", blobID),
		slog.Int("swept", swept),
	)
	return mapping, nil
}

// Resolve returns the mapping for a code. Malformed, unknown, and expired
// codes all fail with apperror.ErrInvalidCode; an expired mapping is also
// deleted so the registry doesn't accumulate dead entries.
func (r *Registry) Resolve(ctx context.Context, code string) (model.SyncMapping, error) {
	normalized := crypto.NormalizeSyncCode(code)
	if !crypto.ValidateSyncCode(normalized) {
		return model.SyncMapping{}, apperror.InvalidCode("invalid sync code format")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	mappings, err := r.store.ReadRegistry(ctx)
	if err != nil {
		return model.SyncMapping{}, fmt.Errorf("registry: reading mappings: %w", err)
	}

	mapping, ok := mappings[normalized]
	if !ok {
		return model.SyncMapping{}, apperror.InvalidCode(
			"sync code not found, it may have been issued on another device")
	}

	if mapping.Expired(r.now()) {
		delete(mappings, normalized)
		if err := r.store.WriteRegistry(ctx, mappings); err != nil {
			return model.SyncMapping{}, fmt.Errorf("registry: deleting expired mapping: %w", err)
		}
		r.logger.Info("expired sync code removed",
			slog.String("code", crypto.FormatSyncCode(normalized)))
		return model.SyncMapping{}, apperror.InvalidCode(
			"sync code expired, codes are valid for 48 hours")
	}

	return mapping, nil
}

// IsValid reports whether a code currently resolves, without the caller
// having to distinguish error kinds.
func (r *Registry) IsValid(ctx context.Context, code string) bool {
	_, err := r.Resolve(ctx, code)
	return err == nil
}

// Remove deletes a mapping, typically after its remote blob was deleted.
// Removing an unknown code is a no-op.
func (r *Registry) Remove(ctx context.Context, code string) error {
	normalized := crypto.NormalizeSyncCode(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	mappings, err := r.store.ReadRegistry(ctx)
	if err != nil {
		return fmt.Errorf("registry: reading mappings: %w", err)
	}
	if _, ok := mappings[normalized]; !ok {
		return nil
	}
	delete(mappings, normalized)

	if err := r.store.WriteRegistry(ctx, mappings); err != nil {
		return fmt.Errorf("registry: writing mappings: %w", err)
	}
	return nil
}

// sweep drops expired mappings in place and returns how many were removed.
func (r *Registry) sweep(mappings map[string]model.SyncMapping, now time.Time) int {
	removed := 0
	for code, m := range mappings {
		if m.Expired(now) {
			delete(mappings, code)
			removed++
		}
	}
	return removed
}
