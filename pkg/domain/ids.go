// Package domain holds typed identifiers and enums shared across packages.
// IDs wrap uuid.UUID so an entity id can never be passed where a snapshot id
// is expected.
package domain

import "github.com/google/uuid"

type EntityID uuid.UUID

func NewEntityID() EntityID { return EntityID(uuid.New()) }

func ParseEntityID(s string) (EntityID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EntityID{}, err
	}
	return EntityID(u), nil
}

func (id EntityID) String() string { return uuid.UUID(id).String() }
func (id EntityID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

type SnapshotID uuid.UUID

func NewSnapshotID() SnapshotID { return SnapshotID(uuid.New()) }

func ParseSnapshotID(s string) (SnapshotID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SnapshotID{}, err
	}
	return SnapshotID(u), nil
}

func (id SnapshotID) String() string { return uuid.UUID(id).String() }
func (id SnapshotID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

type AffiliationID uuid.UUID

func NewAffiliationID() AffiliationID { return AffiliationID(uuid.New()) }

func ParseAffiliationID(s string) (AffiliationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AffiliationID{}, err
	}
	return AffiliationID(u), nil
}

func (id AffiliationID) String() string { return uuid.UUID(id).String() }
func (id AffiliationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
