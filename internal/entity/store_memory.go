package entity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

// MemoryStore keeps entity aggregates in process memory. Used by unit tests
// and as the reference implementation for the PostgreSQL store.
type MemoryStore struct {
	mu       sync.RWMutex
	entities map[domain.EntityID]*Entity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entities: make(map[domain.EntityID]*Entity)}
}

func (s *MemoryStore) Create(_ context.Context, e *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID.IsNil() {
		e.ID = domain.NewEntityID()
	}
	if _, exists := s.entities[e.ID]; exists {
		return sentinel.ErrConflict
	}
	for i, ident := range e.Identifiers {
		if !ident.Type.GloballyUnique() {
			continue
		}
		v, err := NormalizeIdentifier(ident.Type, ident.Value)
		if err != nil {
			return err
		}
		if _, taken := s.ownerLocked(ident.Type, v); taken {
			return sentinel.ErrConflict
		}
		e.Identifiers[i].Value = v
	}
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now
	cp := *e
	s.entities[e.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id domain.EntityID) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *e
	cp.Identifiers = append([]Identifier(nil), e.Identifiers...)
	cp.Addresses = append([]Address(nil), e.Addresses...)
	cp.Contacts = append([]Contact(nil), e.Contacts...)
	return &cp, nil
}

func (s *MemoryStore) AddIdentifier(_ context.Context, ident Identifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ident.Type.GloballyUnique() {
		v, err := NormalizeIdentifier(ident.Type, ident.Value)
		if err != nil {
			return err
		}
		ident.Value = v
		if _, taken := s.ownerLocked(ident.Type, v); taken {
			return sentinel.ErrConflict
		}
	}
	e, ok := s.entities[ident.EntityID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if ident.ID == "" {
		ident.ID = uuid.NewString()
	}
	e.Identifiers = append(e.Identifiers, ident)
	e.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) AddAddress(_ context.Context, addr Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[addr.EntityID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if addr.ID == "" {
		addr.ID = uuid.NewString()
	}
	e.Addresses = append(e.Addresses, addr)
	e.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) AddContact(_ context.Context, contact Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[contact.EntityID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	e.Contacts = append(e.Contacts, contact)
	e.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) FindIdentifierOwner(_ context.Context, typ IdentifierType, value string) (domain.EntityID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.ownerLocked(typ, value); ok {
		return id, nil
	}
	return domain.EntityID{}, sentinel.ErrNotFound
}

func (s *MemoryStore) ownerLocked(typ IdentifierType, value string) (domain.EntityID, bool) {
	for id, e := range s.entities {
		for _, ident := range e.Identifiers {
			if ident.Type == typ && ident.Value == value {
				return id, true
			}
		}
	}
	return domain.EntityID{}, false
}

func (s *MemoryStore) HasContact(_ context.Context, id domain.EntityID, typ ContactType, value string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	for _, c := range e.Contacts {
		if c.Type == typ && strings.EqualFold(c.Value, value) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) HasAddress(_ context.Context, id domain.EntityID, typ AddressType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	for _, a := range e.Addresses {
		if a.Type == typ {
			return true, nil
		}
	}
	return false, nil
}

// MemoryAffiliationStore is the in-memory counterpart of the affiliations
// table. Insertion order is tracked so listings come back in the same order
// the PostgreSQL store produces with its created_at sort.
type MemoryAffiliationStore struct {
	mu   sync.RWMutex
	rows map[domain.AffiliationID]*Affiliation
	seq  map[domain.AffiliationID]int
	next int
}

func NewMemoryAffiliationStore() *MemoryAffiliationStore {
	return &MemoryAffiliationStore{
		rows: make(map[domain.AffiliationID]*Affiliation),
		seq:  make(map[domain.AffiliationID]int),
	}
}

func (s *MemoryAffiliationStore) Insert(_ context.Context, aff Affiliation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if aff.ID.IsNil() {
		aff.ID = domain.NewAffiliationID()
	}
	cp := aff
	s.rows[aff.ID] = &cp
	s.seq[aff.ID] = s.next
	s.next++
	return nil
}

func (s *MemoryAffiliationStore) ListActiveByObject(_ context.Context, object domain.EntityID) ([]Affiliation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Affiliation
	for _, aff := range s.rows {
		if aff.ObjectEntityID == object && aff.Status == AffiliationActive {
			out = append(out, *aff)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out, nil
}

func (s *MemoryAffiliationStore) End(_ context.Context, id domain.AffiliationID, validTo time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	aff, ok := s.rows[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if aff.Status != AffiliationActive {
		return nil
	}
	aff.Status = AffiliationEnded
	t := validTo
	aff.ValidTo = &t
	return nil
}

func (s *MemoryAffiliationStore) MarkUnknownByObject(_ context.Context, object domain.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, aff := range s.rows {
		if aff.ObjectEntityID == object && aff.Status == AffiliationActive {
			aff.Status = AffiliationUnknown
		}
	}
	return nil
}
