package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/sakif/momentum-sync/internal/apperror"
	"github.com/sakif/momentum-sync/internal/crypto"
	"github.com/sakif/momentum-sync/internal/model"
	"github.com/sakif/momentum-sync/internal/registry"
	"github.com/sakif/momentum-sync/internal/remote"
	"github.com/sakif/momentum-sync/internal/store/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRemote is an in-memory stand-in for the paste backend adapter.
type fakeRemote struct {
	blobs      map[string]string
	nextID     int
	publishErr error
	deleted    []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{blobs: make(map[string]string)}
}

func (f *fakeRemote) Publish(_ context.Context, ciphertext string) (*remote.PublishResult, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	f.nextID++
	id := fmt.Sprintf("blob-%d", f.nextID)
	f.blobs[id] = ciphertext
	return &remote.PublishResult{
		BlobID:      id,
		URL:         "http://backend/p/" + id,
		DeleteToken: "tok-" + id,
	}, nil
}

func (f *fakeRemote) Fetch(_ context.Context, blobID string) (string, error) {
	content, ok := f.blobs[blobID]
	if !ok {
		return "", apperror.NotFound("sync blob", blobID)
	}
	return content, nil
}

func (f *fakeRemote) Delete(_ context.Context, blobID, deleteToken string) error {
	if deleteToken != "tok-"+blobID {
		return apperror.Network("deleting sync data", errors.New("bad token"))
	}
	delete(f.blobs, blobID)
	f.deleted = append(f.deleted, blobID)
	return nil
}

func (f *fakeRemote) Status() remote.RateLimitStatus {
	return remote.RateLimitStatus{Remaining: 55, ResetIn: time.Hour}
}

// failingRegistry refuses every registration, for export-cleanup tests.
type failingRegistry struct{}

func (failingRegistry) Register(context.Context, string, string) (model.SyncMapping, error) {
	return model.SyncMapping{}, errors.New("registry write failed")
}

func (failingRegistry) Resolve(context.Context, string) (model.SyncMapping, error) {
	return model.SyncMapping{}, apperror.InvalidCode("no mappings here")
}

func (failingRegistry) Remove(context.Context, string) error { return nil }

// device bundles one simulated device's service and collaborators. Devices
// built from the same fixture share the remote backend and code registry,
// each with its own local store.
type device struct {
	service *Service
	store   *memory.Store
	remote  *fakeRemote
}

func newDevice(t *testing.T, rc *fakeRemote, reg Registry) *device {
	t.Helper()
	st := memory.New()
	if reg == nil {
		reg = registry.New(st, discardLogger())
	}
	return &device{
		service: New(st, reg, rc, crypto.NewForTest(256), discardLogger()),
		store:   st,
		remote:  rc,
	}
}

func seedSnapshot(t *testing.T, st *memory.Store) *model.Snapshot {
	t.Helper()
	snapshot := &model.Snapshot{
		Activities: []model.Activity{
			{ID: "act-1", Name: "Meditate", Order: 0, ActiveDays: []string{model.EveryDay}},
			{ID: "act-2", Name: "Run", Order: 1, ActiveDays: []string{"monday", "friday"}},
		},
		Days: map[string]model.DayRecord{
			"2026-08-27": {Completed: []string{"act-1"}, Notes: "quiet day", Mood: model.MoodCalm, Energy: 3},
		},
		Settings: model.Settings{"theme": "dark"},
		Version:  "1.0.0",
	}
	if err := st.ReplaceSnapshot(context.Background(), snapshot); err != nil {
		t.Fatalf("seeding snapshot: %v", err)
	}
	return snapshot
}

func TestExportImportRoundTrip(t *testing.T) {
	rc := newFakeRemote()
	dev := newDevice(t, rc, nil)
	ctx := context.Background()
	seeded := seedSnapshot(t, dev.store)

	result, err := dev.service.ExportForSync(ctx)
	if err != nil {
		t.Fatalf("ExportForSync() error = %v", err)
	}
	if !crypto.ValidateSyncCode(result.Code) {
		t.Errorf("export code %q is not a valid sync code", result.Code)
	}
	if result.ExpiresAt <= time.Now().UnixMilli() {
		t.Errorf("ExpiresAt = %d, want in the future", result.ExpiresAt)
	}
	if len(rc.blobs) != 1 {
		t.Fatalf("remote holds %d blobs, want 1", len(rc.blobs))
	}

	imported, err := dev.service.ImportFromSync(ctx, result.Code)
	if err != nil {
		t.Fatalf("ImportFromSync() error = %v", err)
	}

	if !reflect.DeepEqual(imported.Incoming.Activities, seeded.Activities) {
		t.Errorf("activities after round-trip:\n got  %+v\n want %+v",
			imported.Incoming.Activities, seeded.Activities)
	}
	if !reflect.DeepEqual(imported.Incoming.Days, seeded.Days) {
		t.Errorf("day records after round-trip differ")
	}
	if imported.Incoming.Metadata == nil || imported.Incoming.Metadata.Checksum == "" {
		t.Error("imported snapshot is missing export metadata")
	}

	// Importing onto the same device conflicts everywhere.
	if len(imported.Conflicts.Activities) != 2 {
		t.Errorf("activity conflicts = %d, want 2", len(imported.Conflicts.Activities))
	}
	if len(imported.Conflicts.Days) != 1 {
		t.Errorf("day conflicts = %d, want 1", len(imported.Conflicts.Days))
	}
	if !imported.Conflicts.Settings {
		t.Error("settings conflict should be raised")
	}
}

func TestCrossDeviceImport(t *testing.T) {
	rc := newFakeRemote()
	exporter := newDevice(t, rc, nil)
	ctx := context.Background()
	seedSnapshot(t, exporter.store)

	result, err := exporter.service.ExportForSync(ctx)
	if err != nil {
		t.Fatalf("ExportForSync() error = %v", err)
	}

	// The importing device shares the backend and registry but starts empty.
	importer := newDevice(t, rc, exporter.service.registry)

	imported, err := importer.service.ImportFromSync(ctx, result.Code)
	if err != nil {
		t.Fatalf("ImportFromSync() error = %v", err)
	}
	if !imported.Conflicts.Empty() {
		t.Errorf("import onto an empty device should be conflict-free, got %+v",
			imported.Conflicts)
	}

	merged, err := importer.service.ApplyImportedData(ctx, imported.Incoming, model.StrategyReplace, nil)
	if err != nil {
		t.Fatalf("ApplyImportedData() error = %v", err)
	}
	if merged.Metadata != nil {
		t.Error("applied snapshot should not carry stale export metadata")
	}

	stored, err := importer.store.ReadSnapshot(ctx)
	if err != nil {
		t.Fatalf("ReadSnapshot() after apply: %v", err)
	}
	if len(stored.Activities) != 2 {
		t.Errorf("stored activities = %d, want 2", len(stored.Activities))
	}
}

func TestExportWithoutLocalData(t *testing.T) {
	dev := newDevice(t, newFakeRemote(), nil)

	_, err := dev.service.ExportForSync(context.Background())
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ExportForSync() on empty device: error = %v, want ErrNotFound", err)
	}
}

func TestImportRejectsMalformedCode(t *testing.T) {
	dev := newDevice(t, newFakeRemote(), nil)

	_, err := dev.service.ImportFromSync(context.Background(), "nope")
	if !errors.Is(err, apperror.ErrInvalidCode) {
		t.Errorf("ImportFromSync() error = %v, want ErrInvalidCode", err)
	}
}

func TestImportUnknownCode(t *testing.T) {
	dev := newDevice(t, newFakeRemote(), nil)

	_, err := dev.service.ImportFromSync(context.Background(), "ZZZZ-9999")
	if !errors.Is(err, apperror.ErrInvalidCode) {
		t.Errorf("ImportFromSync() error = %v, want ErrInvalidCode", err)
	}
}

func TestImportWrongCodeFailsDecryption(t *testing.T) {
	rc := newFakeRemote()
	dev := newDevice(t, rc, nil)
	ctx := context.Background()
	seedSnapshot(t, dev.store)

	result, err := dev.service.ExportForSync(ctx)
	if err != nil {
		t.Fatalf("ExportForSync() error = %v", err)
	}

	// Point a different code at the same blob. Resolving succeeds but the
	// passphrase no longer matches the ciphertext.
	mapping, err := dev.service.registry.Resolve(ctx, result.Code)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := dev.service.registry.Register(ctx, "WRNG-0000", mapping.BlobID); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err = dev.service.ImportFromSync(ctx, "WRNG-0000")
	if !errors.Is(err, apperror.ErrDecryption) {
		t.Errorf("ImportFromSync() with wrong code: error = %v, want ErrDecryption", err)
	}
}

func TestImportMissingBlob(t *testing.T) {
	rc := newFakeRemote()
	dev := newDevice(t, rc, nil)
	ctx := context.Background()
	seedSnapshot(t, dev.store)

	result, err := dev.service.ExportForSync(ctx)
	if err != nil {
		t.Fatalf("ExportForSync() error = %v", err)
	}

	// The backend's retention purged the blob out from under us.
	rc.blobs = map[string]string{}

	_, err = dev.service.ImportFromSync(ctx, result.Code)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ImportFromSync() after purge: error = %v, want ErrNotFound", err)
	}
}

func TestExportDeletesBlobWhenRegistrationFails(t *testing.T) {
	rc := newFakeRemote()
	dev := newDevice(t, rc, failingRegistry{})
	ctx := context.Background()
	seedSnapshot(t, dev.store)

	_, err := dev.service.ExportForSync(ctx)
	if err == nil {
		t.Fatal("ExportForSync() should fail when registration fails")
	}
	if len(rc.blobs) != 0 {
		t.Errorf("orphaned blob left behind: %v", rc.blobs)
	}
	if len(rc.deleted) != 1 {
		t.Errorf("deleted blobs = %v, want exactly one cleanup delete", rc.deleted)
	}
}

func TestHistoryIsCapped(t *testing.T) {
	dev := newDevice(t, newFakeRemote(), nil)
	ctx := context.Background()
	incoming := &model.Snapshot{Days: map[string]model.DayRecord{}}

	for i := 0; i < historyLimit+3; i++ {
		if _, err := dev.service.ApplyImportedData(ctx, incoming, model.StrategyMerge, nil); err != nil {
			t.Fatalf("ApplyImportedData() #%d error = %v", i, err)
		}
	}

	history, err := dev.store.ReadHistory(ctx)
	if err != nil {
		t.Fatalf("ReadHistory() error = %v", err)
	}
	if len(history) != historyLimit {
		t.Errorf("history length = %d, want %d", len(history), historyLimit)
	}
	for _, e := range history {
		if e.Type != "import" {
			t.Errorf("history entry type = %q, want import", e.Type)
		}
		if e.ID == "" {
			t.Error("history entry has no id")
		}
	}
}

func TestGetSyncStatus(t *testing.T) {
	rc := newFakeRemote()
	dev := newDevice(t, rc, nil)
	ctx := context.Background()

	status, err := dev.service.GetSyncStatus(ctx)
	if err != nil {
		t.Fatalf("GetSyncStatus() error = %v", err)
	}
	if status.HasData {
		t.Error("fresh device should report HasData = false")
	}
	if len(status.History) != 0 {
		t.Errorf("fresh device history = %d entries, want 0", len(status.History))
	}

	seedSnapshot(t, dev.store)
	if _, err := dev.service.ExportForSync(ctx); err != nil {
		t.Fatalf("ExportForSync() error = %v", err)
	}

	status, err = dev.service.GetSyncStatus(ctx)
	if err != nil {
		t.Fatalf("GetSyncStatus() error = %v", err)
	}
	if !status.HasData {
		t.Error("seeded device should report HasData = true")
	}
	if len(status.History) != 1 || status.History[0].Type != "export" {
		t.Errorf("history after export = %+v, want one export entry", status.History)
	}
	if status.RateLimit.Remaining != 55 {
		t.Errorf("RateLimit.Remaining = %d, want 55", status.RateLimit.Remaining)
	}
}

func TestRevoke(t *testing.T) {
	rc := newFakeRemote()
	dev := newDevice(t, rc, nil)
	ctx := context.Background()
	seedSnapshot(t, dev.store)

	result, err := dev.service.ExportForSync(ctx)
	if err != nil {
		t.Fatalf("ExportForSync() error = %v", err)
	}

	if err := dev.service.Revoke(ctx, result.Code, result.DeleteToken); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	if len(rc.blobs) != 0 {
		t.Error("revoked blob still stored remotely")
	}
	_, err = dev.service.ImportFromSync(ctx, result.Code)
	if !errors.Is(err, apperror.ErrInvalidCode) {
		t.Errorf("ImportFromSync() after revoke: error = %v, want ErrInvalidCode", err)
	}
}
