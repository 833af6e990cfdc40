// Package sync is the device-to-device synchronization core: conflict
// detection, merging, and the two user-facing flows (export-to-code and
// import-from-code) that tie the cipher, the remote blob store, the code
// registry, and the local store together.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/momentum-sync/internal/apperror"
	"github.com/sakif/momentum-sync/internal/crypto"
	"github.com/sakif/momentum-sync/internal/model"
	"github.com/sakif/momentum-sync/internal/remote"
	"github.com/sakif/momentum-sync/internal/store"
)

// historyLimit caps the sync history; the oldest entry falls off when a new
// one arrives.
const historyLimit = 10

// Remote is the slice of the blob store adapter the service needs.
type Remote interface {
	Publish(ctx context.Context, ciphertext string) (*remote.PublishResult, error)
	Fetch(ctx context.Context, blobID string) (string, error)
	Delete(ctx context.Context, blobID, deleteToken string) error
	Status() remote.RateLimitStatus
}

// Registry is the slice of the code registry the service needs.
type Registry interface {
	Register(ctx context.Context, code, blobID string) (model.SyncMapping, error)
	Resolve(ctx context.Context, code string) (model.SyncMapping, error)
	Remove(ctx context.Context, code string) error
}

// Service orchestrates export and import. It holds no state of its own
// beyond collaborators; everything durable lives in the store and registry.
//
// Callers must not run two sync flows against the same store concurrently —
// the UI disables the trigger while one is in flight.
type Service struct {
	store    store.LocalStore
	registry Registry
	remote   Remote
	cipher   *crypto.Cipher
	logger   *slog.Logger

	now        func() time.Time
	deviceInfo string
}

// New creates the sync service.
func New(st store.LocalStore, reg Registry, rc Remote, cipher *crypto.Cipher, logger *slog.Logger) *Service {
	return &Service{
		store:      st,
		registry:   reg,
		remote:     rc,
		cipher:     cipher,
		logger:     logger,
		now:        time.Now,
		deviceInfo: deviceDescriptor(),
	}
}

// deviceDescriptor identifies this device in snapshot metadata and history,
// e.g. "sakif-laptop (linux)". Informational only.
func deviceDescriptor() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown device"
	}
	return fmt.Sprintf("%s (%s)", host, runtime.GOOS)
}

// ExportResult is what the export flow hands back to the UI.
type ExportResult struct {
	// Code in display form, "AAAA-BBBB". It is both the lookup key and the
	// encryption passphrase; it is never stored or transmitted in the clear.
	Code string `json:"code"`
	// ExpiresAt is when the code stops resolving, epoch ms.
	ExpiresAt int64  `json:"expiresAt"`
	URL       string `json:"url,omitempty"`
	// DeleteToken lets the caller revoke the export early via Revoke.
	DeleteToken string `json:"deleteToken,omitempty"`
}

// ExportForSync encrypts the local snapshot under a fresh sync code,
// publishes the envelope, and registers the code. Any failure aborts the
// whole flow: a failed publish leaves no registry entry, a failed
// registration tries to take the published blob down again.
func (s *Service) ExportForSync(ctx context.Context) (*ExportResult, error) {
	snapshot, err := s.store.ReadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: reading snapshot for export: %w", err)
	}

	checksum, err := crypto.Checksum(*snapshot)
	if err != nil {
		return nil, err
	}
	snapshot.Metadata = &model.SyncMetadata{
		DeviceInfo: s.deviceInfo,
		ExportedAt: s.now().UnixMilli(),
		Checksum:   checksum,
	}

	code, err := crypto.GenerateSyncCode()
	if err != nil {
		return nil, fmt.Errorf("sync: generating code: %w", err)
	}
	passphrase := crypto.NormalizeSyncCode(code)

	envelope, err := s.cipher.Encrypt(*snapshot, passphrase)
	if err != nil {
		return nil, fmt.Errorf("sync: encrypting snapshot: %w", err)
	}
	ciphertext, err := envelope.Marshal()
	if err != nil {
		return nil, fmt.Errorf("sync: encoding envelope: %w", err)
	}

	published, err := s.remote.Publish(ctx, ciphertext)
	if err != nil {
		return nil, err
	}

	mapping, err := s.registry.Register(ctx, code, published.BlobID)
	if err != nil {
		// The blob is already out there but nothing points at it. Take it
		// down again so the failed export leaves no trace.
		if published.DeleteToken != "" {
			if delErr := s.remote.Delete(ctx, published.BlobID, published.DeleteToken); delErr != nil {
				s.logger.Warn("could not delete orphaned blob after failed registration",
					slog.String("blobId", published.BlobID),
					slog.Any("error", delErr))
			}
		}
		return nil, err
	}

	s.appendHistory(ctx, "export", mapping.Code)

	s.logger.Info("export complete",
		slog.String("code", crypto.FormatSyncCode(mapping.Code)),
		slog.String("blobId", published.BlobID),
		slog.Int64("expiresAt", mapping.ExpiresAt),
	)

	return &ExportResult{
		Code:        crypto.FormatSyncCode(mapping.Code),
		ExpiresAt:   mapping.ExpiresAt,
		URL:         published.URL,
		DeleteToken: published.DeleteToken,
	}, nil
}

// ImportResult carries the decrypted snapshot and the conflicts against the
// local one. The caller presents the conflicts, collects a strategy and
// optional per-item resolutions, then calls ApplyImportedData.
type ImportResult struct {
	Incoming  *model.Snapshot   `json:"incoming"`
	Conflicts model.ConflictSet `json:"conflicts"`
}

// ImportFromSync resolves a code, fetches and decrypts the blob behind it,
// and reports conflicts against the local snapshot. Nothing is written: the
// local store is untouched until ApplyImportedData.
func (s *Service) ImportFromSync(ctx context.Context, code string) (*ImportResult, error) {
	if !crypto.ValidateSyncCode(code) {
		return nil, apperror.InvalidCode("invalid sync code format")
	}

	mapping, err := s.registry.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}

	ciphertext, err := s.remote.Fetch(ctx, mapping.BlobID)
	if err != nil {
		return nil, err
	}

	envelope, err := crypto.ParseEnvelope(ciphertext)
	if err != nil {
		return nil, err
	}

	incoming, err := s.cipher.Decrypt(envelope, crypto.NormalizeSyncCode(code))
	if err != nil {
		return nil, err
	}

	// The checksum is a redundant cross-check: AEAD already failed loudly on
	// any corruption, so a mismatch here is a soft signal, never fatal.
	if incoming.Metadata != nil && incoming.Metadata.Checksum != "" {
		if got, err := crypto.Checksum(incoming); err == nil && got != incoming.Metadata.Checksum {
			s.logger.Warn("checksum mismatch on imported snapshot",
				slog.String("expected", incoming.Metadata.Checksum),
				slog.String("got", got))
		}
	}

	local, err := s.readLocalOrEmpty(ctx)
	if err != nil {
		return nil, err
	}

	conflicts := DetectConflicts(&incoming, local)

	s.logger.Info("import fetched",
		slog.String("code", crypto.FormatSyncCode(code)),
		slog.Int("conflicts", conflicts.Count()),
	)

	return &ImportResult{Incoming: &incoming, Conflicts: conflicts}, nil
}

// ApplyImportedData merges the imported snapshot into the local one under
// the chosen strategy and replaces the stored snapshot wholesale.
func (s *Service) ApplyImportedData(ctx context.Context, incoming *model.Snapshot, strategy model.Strategy, resolutions *model.Resolutions) (*model.Snapshot, error) {
	local, err := s.readLocalOrEmpty(ctx)
	if err != nil {
		return nil, err
	}

	merged, err := Merge(local, incoming, strategy, resolutions)
	if err != nil {
		return nil, err
	}

	// Merged data is local data now; stale export metadata would be a lie.
	merged.Metadata = nil

	if err := s.store.ReplaceSnapshot(ctx, merged); err != nil {
		return nil, fmt.Errorf("sync: replacing snapshot: %w", err)
	}

	s.appendHistory(ctx, "import", "")

	s.logger.Info("import applied",
		slog.String("strategy", string(strategy)),
		slog.Int("activities", len(merged.Activities)),
		slog.Int("days", len(merged.Days)),
	)

	return merged, nil
}

// Revoke takes down a published blob before its retention window ends and
// forgets the code. deleteToken comes from the ExportResult.
func (s *Service) Revoke(ctx context.Context, code, deleteToken string) error {
	mapping, err := s.registry.Resolve(ctx, code)
	if err != nil {
		return err
	}
	if err := s.remote.Delete(ctx, mapping.BlobID, deleteToken); err != nil {
		return err
	}
	if err := s.registry.Remove(ctx, code); err != nil {
		return err
	}

	s.logger.Info("export revoked", slog.String("code", crypto.FormatSyncCode(code)))
	return nil
}

// SyncStatus is the read-only state the UI shows on the sync screen.
type SyncStatus struct {
	HasData   bool                   `json:"hasData"`
	History   []model.HistoryEntry   `json:"history"`
	RateLimit remote.RateLimitStatus `json:"rateLimit"`
}

// GetSyncStatus reports whether the device has data, the recent sync
// history, and the remote budget.
func (s *Service) GetSyncStatus(ctx context.Context) (*SyncStatus, error) {
	hasData := true
	if _, err := s.store.ReadSnapshot(ctx); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		hasData = false
	}

	history, err := s.store.ReadHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: reading history: %w", err)
	}

	return &SyncStatus{
		HasData:   hasData,
		History:   history,
		RateLimit: s.remote.Status(),
	}, nil
}

// readLocalOrEmpty treats a device with no data yet as an empty snapshot, so
// a first import on a fresh device just works.
func (s *Service) readLocalOrEmpty(ctx context.Context) (*model.Snapshot, error) {
	snapshot, err := s.store.ReadSnapshot(ctx)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return &model.Snapshot{Days: map[string]model.DayRecord{}}, nil
		}
		return nil, err
	}
	if snapshot.Days == nil {
		snapshot.Days = map[string]model.DayRecord{}
	}
	return snapshot, nil
}

// appendHistory prepends one entry to the capped sync history. History is
// informational; a write failure is logged, never fatal to the sync itself.
func (s *Service) appendHistory(ctx context.Context, eventType, code string) {
	entries, err := s.store.ReadHistory(ctx)
	if err != nil {
		s.logger.Warn("could not read sync history", slog.Any("error", err))
		return
	}

	entry := model.HistoryEntry{
		ID:         xid.New().String(),
		Type:       eventType,
		SyncCode:   crypto.FormatSyncCode(code),
		Timestamp:  s.now().UnixMilli(),
		DeviceInfo: s.deviceInfo,
	}
	entries = append([]model.HistoryEntry{entry}, entries...)
	if len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}

	if err := s.store.WriteHistory(ctx, entries); err != nil {
		s.logger.Warn("could not write sync history", slog.Any("error", err))
	}
}
