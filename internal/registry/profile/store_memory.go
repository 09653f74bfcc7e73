package profile

import (
	"context"
	"sync"

	"registrar/internal/registry/models"
	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

type memoryKey struct {
	entityID domain.EntityID
	source   models.Source
}

// MemoryStore is the in-memory Store used by unit tests.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[memoryKey]models.Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[memoryKey]models.Profile)}
}

func (s *MemoryStore) Upsert(_ context.Context, entityID domain.EntityID, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[memoryKey{entityID, p.Source}] = *p
	return nil
}

func (s *MemoryStore) Get(_ context.Context, entityID domain.EntityID, source models.Source) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[memoryKey{entityID, source}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) ListByEntity(_ context.Context, entityID domain.EntityID) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Profile
	for key, p := range s.profiles {
		if key.entityID == entityID {
			out = append(out, p)
		}
	}
	return out, nil
}
