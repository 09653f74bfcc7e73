package snapshot

import (
	"context"
	"sort"
	"sync"

	"registrar/internal/registry/models"
	"registrar/pkg/platform/sentinel"
)

// MemoryStore is the in-memory Store used by unit tests and local runs.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots []models.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(_ context.Context, snap *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *snap
	copied.Raw = append([]byte(nil), snap.Raw...)
	s.snapshots = append(s.snapshots, copied)
	return nil
}

func (s *MemoryStore) Latest(_ context.Context, source models.Source, lookupKey string) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		if s.snapshots[i].Source == source && s.snapshots[i].LookupKey == lookupKey {
			snap := s.snapshots[i]
			return &snap, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListByKey(_ context.Context, source models.Source, lookupKey string) ([]models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Snapshot
	for _, snap := range s.snapshots {
		if snap.Source == source && snap.LookupKey == lookupKey {
			out = append(out, snap)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FetchedAt.After(out[j].FetchedAt) })
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, snap := range s.snapshots {
		if snap.ID.String() == id {
			copied := snap
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Count reports the number of stored snapshots. Test helper.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
