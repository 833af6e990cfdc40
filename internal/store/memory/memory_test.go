package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/momentum-sync/internal/apperror"
	"github.com/sakif/momentum-sync/internal/model"
)

func TestSnapshotRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.ReadSnapshot(ctx)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ReadSnapshot() on empty store: error = %v, want ErrNotFound", err)
	}

	snapshot := &model.Snapshot{
		Activities: []model.Activity{{ID: "a", Name: "Stretch", Order: 0}},
		Days: map[string]model.DayRecord{
			"2026-08-28": {Completed: []string{"a"}},
		},
	}
	if err := s.ReplaceSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("ReplaceSnapshot() error = %v", err)
	}

	found, err := s.ReadSnapshot(ctx)
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if len(found.Activities) != 1 || found.Activities[0].Name != "Stretch" {
		t.Errorf("ReadSnapshot() = %+v, want the stored snapshot", found)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.ReplaceSnapshot(ctx, &model.Snapshot{
		Activities: []model.Activity{{ID: "a", Name: "Stretch", Order: 0}},
	}); err != nil {
		t.Fatalf("ReplaceSnapshot() error = %v", err)
	}

	first, _ := s.ReadSnapshot(ctx)
	first.Activities[0].Name = "mutated"

	second, _ := s.ReadSnapshot(ctx)
	if second.Activities[0].Name != "Stretch" {
		t.Error("mutating a read result leaked into the store")
	}
}

func TestRegistryAndHistory(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.WriteRegistry(ctx, map[string]model.SyncMapping{
		"ABCD1234": {Code: "ABCD1234", BlobID: "blob-a", CreatedAt: 1, ExpiresAt: 2},
	}); err != nil {
		t.Fatalf("WriteRegistry() error = %v", err)
	}
	reg, err := s.ReadRegistry(ctx)
	if err != nil {
		t.Fatalf("ReadRegistry() error = %v", err)
	}
	if len(reg) != 1 || reg["ABCD1234"].BlobID != "blob-a" {
		t.Errorf("ReadRegistry() = %+v, want the stored mapping", reg)
	}

	entries := []model.HistoryEntry{
		{ID: "h-2", Type: "import", Timestamp: 2},
		{ID: "h-1", Type: "export", Timestamp: 1},
	}
	if err := s.WriteHistory(ctx, entries); err != nil {
		t.Fatalf("WriteHistory() error = %v", err)
	}
	got, err := s.ReadHistory(ctx)
	if err != nil {
		t.Fatalf("ReadHistory() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "h-2" {
		t.Errorf("ReadHistory() = %+v, want stored order preserved", got)
	}
}
