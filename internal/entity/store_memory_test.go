package entity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	affs  *MemoryAffiliationStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.affs = NewMemoryAffiliationStore()
}

func (s *MemoryStoreSuite) createEntity(typ Type, label string) domain.EntityID {
	e := &Entity{Type: typ, CanonicalLabel: label}
	s.Require().NoError(s.store.Create(context.Background(), e))
	s.Require().False(e.ID.IsNil())
	return e.ID
}

func (s *MemoryStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	id := s.createEntity(TypeLegalPerson, "ALFA SP. Z O.O.")

	got, err := s.store.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal(TypeLegalPerson, got.Type)
	s.Equal("ALFA SP. Z O.O.", got.CanonicalLabel)
	s.False(got.CreatedAt.IsZero())

	s.Run("duplicate id conflicts", func() {
		err := s.store.Create(ctx, &Entity{ID: id, Type: TypeLegalPerson})
		s.True(errors.Is(err, sentinel.ErrConflict))
	})

	s.Run("unknown id", func() {
		_, err := s.store.Get(ctx, domain.NewEntityID())
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})
}

func (s *MemoryStoreSuite) TestIdentifierUniqueness() {
	ctx := context.Background()
	first := s.createEntity(TypeLegalPerson, "ALFA")
	second := s.createEntity(TypeLegalPerson, "BETA")

	ident := Identifier{EntityID: first, Type: IdentifierNIP, Value: "5261040828"}
	s.Require().NoError(s.store.AddIdentifier(ctx, ident))

	s.Run("globally unique type conflicts across entities", func() {
		err := s.store.AddIdentifier(ctx, Identifier{EntityID: second, Type: IdentifierNIP, Value: "5261040828"})
		s.True(errors.Is(err, sentinel.ErrConflict))
	})

	s.Run("OTHER identifiers may repeat", func() {
		other := Identifier{EntityID: first, Type: IdentifierOther, Value: "A-1", RegistryName: "CRBR"}
		s.Require().NoError(s.store.AddIdentifier(ctx, other))
		other.EntityID = second
		s.Require().NoError(s.store.AddIdentifier(ctx, other))
	})

	s.Run("owner lookup", func() {
		owner, err := s.store.FindIdentifierOwner(ctx, IdentifierNIP, "5261040828")
		s.Require().NoError(err)
		s.Equal(first, owner)

		_, err = s.store.FindIdentifierOwner(ctx, IdentifierNIP, "0000000000")
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})

	s.Run("unknown entity", func() {
		err := s.store.AddIdentifier(ctx, Identifier{EntityID: domain.NewEntityID(), Type: IdentifierKRS, Value: "0000012345"})
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})
}

func (s *MemoryStoreSuite) TestContactsAndAddresses() {
	ctx := context.Background()
	id := s.createEntity(TypeLegalPerson, "ALFA")

	s.Require().NoError(s.store.AddContact(ctx, Contact{EntityID: id, Type: ContactEmail, Value: "biuro@alfa.pl"}))
	s.Require().NoError(s.store.AddAddress(ctx, Address{EntityID: id, Type: AddressMain, City: "Warszawa"}))

	has, err := s.store.HasContact(ctx, id, ContactEmail, "BIURO@ALFA.PL")
	s.Require().NoError(err)
	s.True(has, "contact comparison is case-insensitive")

	has, err = s.store.HasContact(ctx, id, ContactPhone, "biuro@alfa.pl")
	s.Require().NoError(err)
	s.False(has)

	has, err = s.store.HasAddress(ctx, id, AddressMain)
	s.Require().NoError(err)
	s.True(has)

	has, err = s.store.HasAddress(ctx, id, AddressCorrespondence)
	s.Require().NoError(err)
	s.False(has)

	got, err := s.store.Get(ctx, id)
	s.Require().NoError(err)
	s.Len(got.Contacts, 1)
	s.Len(got.Addresses, 1)
}

func (s *MemoryStoreSuite) TestGetReturnsCopies() {
	ctx := context.Background()
	id := s.createEntity(TypeLegalPerson, "ALFA")
	s.Require().NoError(s.store.AddIdentifier(ctx, Identifier{EntityID: id, Type: IdentifierKRS, Value: "0000012345"}))

	got, err := s.store.Get(ctx, id)
	s.Require().NoError(err)
	got.Identifiers[0].Value = "mutated"
	got.CanonicalLabel = "mutated"

	again, err := s.store.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal("0000012345", again.Identifiers[0].Value)
	s.Equal("ALFA", again.CanonicalLabel)
}

func (s *MemoryStoreSuite) TestAffiliationLifecycle() {
	ctx := context.Background()
	object := s.createEntity(TypeLegalPerson, "ALFA")

	aff := Affiliation{
		ObjectEntityID: object,
		SubjectName:    "JAN KOWALSKI",
		Type:           "BOARD_MEMBER",
		FunctionTitle:  "PREZES ZARZADU",
		Status:         AffiliationActive,
		Confidence:     1.0,
	}
	s.Require().NoError(s.affs.Insert(ctx, aff))

	active, err := s.affs.ListActiveByObject(ctx, object)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	id := active[0].ID

	s.Run("end stamps valid_to", func() {
		endedAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		s.Require().NoError(s.affs.End(ctx, id, endedAt))

		active, err := s.affs.ListActiveByObject(ctx, object)
		s.Require().NoError(err)
		s.Empty(active)
	})

	s.Run("re-ending is a no-op", func() {
		s.Require().NoError(s.affs.End(ctx, id, time.Now()))
	})

	s.Run("unknown id", func() {
		err := s.affs.End(ctx, domain.NewAffiliationID(), time.Now())
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})
}

func (s *MemoryStoreSuite) TestMarkUnknownByObject() {
	ctx := context.Background()
	object := s.createEntity(TypeLegalPerson, "ALFA")
	other := s.createEntity(TypeLegalPerson, "BETA")

	s.Require().NoError(s.affs.Insert(ctx, Affiliation{ObjectEntityID: object, SubjectName: "A", Status: AffiliationActive}))
	s.Require().NoError(s.affs.Insert(ctx, Affiliation{ObjectEntityID: object, SubjectName: "B", Status: AffiliationActive}))
	s.Require().NoError(s.affs.Insert(ctx, Affiliation{ObjectEntityID: other, SubjectName: "C", Status: AffiliationActive}))

	s.Require().NoError(s.affs.MarkUnknownByObject(ctx, object))

	active, err := s.affs.ListActiveByObject(ctx, object)
	s.Require().NoError(err)
	s.Empty(active)

	active, err = s.affs.ListActiveByObject(ctx, other)
	s.Require().NoError(err)
	s.Len(active, 1, "other entities keep their active affiliations")
}

func (s *MemoryStoreSuite) TestIdentifierCanonicalization() {
	ctx := context.Background()
	first := s.createEntity(TypeLegalPerson, "ALFA")
	second := s.createEntity(TypeLegalPerson, "BETA")

	s.Run("values stored canonical", func() {
		s.Require().NoError(s.store.AddIdentifier(ctx, Identifier{
			EntityID: first, Type: IdentifierNIP, Value: "526-104-08-28",
		}))

		got, err := s.store.Get(ctx, first)
		s.Require().NoError(err)
		s.Require().Len(got.Identifiers, 1)
		s.Equal("5261040828", got.Identifiers[0].Value)

		owner, err := s.store.FindIdentifierOwner(ctx, IdentifierNIP, "5261040828")
		s.Require().NoError(err)
		s.Equal(first, owner)
	})

	s.Run("canonical value conflicts with dashed original", func() {
		err := s.store.AddIdentifier(ctx, Identifier{
			EntityID: second, Type: IdentifierNIP, Value: "5261040828",
		})
		s.True(errors.Is(err, sentinel.ErrConflict))
	})

	s.Run("invalid value rejected", func() {
		err := s.store.AddIdentifier(ctx, Identifier{
			EntityID: second, Type: IdentifierNIP, Value: "12345",
		})
		s.Error(err)
	})

	s.Run("create canonicalizes short KRS", func() {
		e := &Entity{
			Type:           TypeLegalPerson,
			CanonicalLabel: "GAMMA",
			Identifiers:    []Identifier{{Type: IdentifierKRS, Value: "12345"}},
		}
		s.Require().NoError(s.store.Create(ctx, e))

		owner, err := s.store.FindIdentifierOwner(ctx, IdentifierKRS, "0000012345")
		s.Require().NoError(err)
		s.Equal(e.ID, owner)
	})

	s.Run("create conflicts on a held value", func() {
		e := &Entity{
			Type:           TypeLegalPerson,
			CanonicalLabel: "DELTA",
			Identifiers:    []Identifier{{Type: IdentifierNIP, Value: "526-104-08-28"}},
		}
		err := s.store.Create(ctx, e)
		s.True(errors.Is(err, sentinel.ErrConflict))
	})
}

func (s *MemoryStoreSuite) TestAffiliationListingOrder() {
	ctx := context.Background()
	object := s.createEntity(TypeLegalPerson, "ALFA")

	names := []string{"ANNA NOWAK", "JAN KOWALSKI", "MARIA WISNIEWSKA"}
	for _, n := range names {
		s.Require().NoError(s.affs.Insert(ctx, Affiliation{
			ObjectEntityID: object, SubjectName: n, Status: AffiliationActive,
		}))
	}

	for range 5 {
		active, err := s.affs.ListActiveByObject(ctx, object)
		s.Require().NoError(err)
		s.Require().Len(active, 3)
		for i, n := range names {
			s.Equal(n, active[i].SubjectName)
		}
	}
}
