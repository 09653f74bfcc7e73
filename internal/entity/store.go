package entity

import (
	"context"
	"time"

	"registrar/pkg/domain"
)

// Stores are interface-driven to keep the reconciliation engine testable and
// to allow swapping in-memory and PostgreSQL persistence without rewiring
// business code. Mutating methods honor a transaction placed in the context
// by the applier (pkg/platform/tx).
type Store interface {
	Create(ctx context.Context, e *Entity) error
	Get(ctx context.Context, id domain.EntityID) (*Entity, error)

	// AddIdentifier canonicalizes structured identifier values before
	// insert and rejects ones NormalizeIdentifier cannot parse.
	AddIdentifier(ctx context.Context, ident Identifier) error
	AddAddress(ctx context.Context, addr Address) error
	AddContact(ctx context.Context, contact Contact) error

	// FindIdentifierOwner returns the entity holding (type, value), or
	// sentinel.ErrNotFound. Feeds the collision detector and the applier's
	// commit-time re-check.
	FindIdentifierOwner(ctx context.Context, typ IdentifierType, value string) (domain.EntityID, error)

	HasContact(ctx context.Context, id domain.EntityID, typ ContactType, value string) (bool, error)
	HasAddress(ctx context.Context, id domain.EntityID, typ AddressType) (bool, error)
}

type AffiliationStore interface {
	Insert(ctx context.Context, aff Affiliation) error
	ListActiveByObject(ctx context.Context, object domain.EntityID) ([]Affiliation, error)

	// End transitions an affiliation to ENDED, stamping valid_to. Ending an
	// already-ended affiliation is a no-op so re-applies stay idempotent.
	End(ctx context.Context, id domain.AffiliationID, validTo time.Time) error

	// MarkUnknownByObject downgrades all ACTIVE affiliations of an object
	// entity to UNKNOWN after a fetch whose role data did not parse cleanly.
	MarkUnknownByObject(ctx context.Context, object domain.EntityID) error
}
