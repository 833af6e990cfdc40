// Package memory implements store.LocalStore in process memory. It backs
// service tests and ephemeral runs where nothing should touch disk.
package memory

import (
	"context"
	"sync"

	"github.com/sakif/momentum-sync/internal/apperror"
	"github.com/sakif/momentum-sync/internal/model"
	"github.com/sakif/momentum-sync/internal/store"
)

var _ store.LocalStore = (*Store)(nil)

// Store holds the three documents behind a mutex. Reads hand out deep
// copies so callers can't mutate stored state through shared slices.
type Store struct {
	mu       sync.Mutex
	snapshot *model.Snapshot
	registry map[string]model.SyncMapping
	history  []model.HistoryEntry
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{registry: make(map[string]model.SyncMapping)}
}

func (s *Store) ReadSnapshot(_ context.Context) (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return nil, apperror.NotFound("snapshot", "local")
	}
	out := s.snapshot.Clone()
	return &out, nil
}

func (s *Store) ReplaceSnapshot(_ context.Context, snapshot *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := snapshot.Clone()
	s.snapshot = &clone
	return nil
}

func (s *Store) ReadRegistry(_ context.Context) (map[string]model.SyncMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]model.SyncMapping, len(s.registry))
	for k, v := range s.registry {
		out[k] = v
	}
	return out, nil
}

func (s *Store) WriteRegistry(_ context.Context, mappings map[string]model.SyncMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry = make(map[string]model.SyncMapping, len(mappings))
	for k, v := range mappings {
		s.registry[k] = v
	}
	return nil
}

func (s *Store) ReadHistory(_ context.Context) ([]model.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]model.HistoryEntry(nil), s.history...), nil
}

func (s *Store) WriteHistory(_ context.Context, entries []model.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append([]model.HistoryEntry(nil), entries...)
	return nil
}
