// Package models defines the value types flowing through the reconciliation
// engine: raw payloads, immutable snapshots, normalized profiles, and the
// proposals derived from comparing a profile to stored entity state.
package models

import (
	"time"

	"registrar/internal/entity"
	"registrar/pkg/domain"
)

type Source string

const (
	SourceKRS   Source = "KRS"
	SourceCEIDG Source = "CEIDG"
)

type PayloadFormat string

const (
	FormatJSON PayloadFormat = "JSON"
	FormatXML  PayloadFormat = "XML"
)

// RawPayload is the untouched registry response as handed over by a client.
type RawPayload struct {
	Bytes           []byte
	Format          PayloadFormat
	SourceTimestamp time.Time
}

// Snapshot is an immutable, hash-addressed record of a raw registry fetch.
// Once written it is never updated or deleted.
type Snapshot struct {
	ID        domain.SnapshotID
	LookupKey string
	Source    Source
	FetchedAt time.Time
	Format    PayloadFormat
	Hash      string
	Raw       []byte
	FetchedBy string
}

// Identifier is a structured identifier extracted from a registry payload.
type Identifier struct {
	Type         entity.IdentifierType
	Value        string
	RegistryName string
}

// Contact is a contact extracted from a registry payload.
type Contact struct {
	Type  entity.ContactType
	Value string
	Label string
}

// RoleFact is a registry-attested role of a subject with respect to the
// looked-up entity, e.g. a management board member of a company.
type RoleFact struct {
	SubjectName        string
	SubjectPESEL       string
	Role               string
	FunctionTitle      string
	RepresentationMode string
	Scope              string
	ValidFrom          *time.Time
}

const RoleManagementBoardMember = "MANAGEMENT_BOARD_MEMBER"

// Profile is the registry-agnostic canonical shape every normalizer produces.
// Slices preserve registry field declaration order; the diff engine relies on
// that for deterministic proposal ordering.
type Profile struct {
	Source    Source
	LookupKey string
	FetchedAt time.Time

	OfficialName     string
	ShortName        string
	FirstName        string
	LastName         string
	LegalForm        string
	LegalFormCode    string
	RegistryStatus   string
	RegistrationDate *time.Time
	CessationDate    *time.Time
	SuspensionDate   *time.Time
	ResumptionDate   *time.Time

	Identifiers []Identifier
	Addresses   []entity.Address
	Contacts    []Contact

	PKDMain  string
	PKDCodes []string

	RoleFacts []RoleFact
	// RolesParsed is false when the payload's role section was present but
	// could not be parsed cleanly; existing ACTIVE affiliations are then
	// downgraded to UNKNOWN instead of being ended.
	RolesParsed bool
}

// Label derives the canonical label a registry would assign this record.
func (p *Profile) Label() string {
	if p.OfficialName != "" {
		return p.OfficialName
	}
	if p.FirstName != "" && p.LastName != "" {
		return p.FirstName + " " + p.LastName
	}
	return ""
}

type ProposalKind string

const (
	ProposalAddIdentifier       ProposalKind = "ADD_IDENTIFIER"
	ProposalAddContact          ProposalKind = "ADD_CONTACT"
	ProposalAddAddress          ProposalKind = "ADD_ADDRESS"
	ProposalNameMismatch        ProposalKind = "NAME_MISMATCH"
	ProposalValueMismatch       ProposalKind = "VALUE_MISMATCH"
	ProposalCollision           ProposalKind = "COLLISION"
	ProposalAffiliationActivate ProposalKind = "AFFILIATION_ACTIVATE"
	ProposalAffiliationEnd      ProposalKind = "AFFILIATION_END"
)

// Applyable reports whether the applier may execute this kind. Mismatches and
// collisions exist only to inform review.
func (k ProposalKind) Applyable() bool {
	switch k {
	case ProposalAddIdentifier, ProposalAddContact, ProposalAddAddress,
		ProposalAffiliationActivate, ProposalAffiliationEnd:
		return true
	}
	return false
}

// AffiliationChange carries the payload of an affiliation proposal. For END
// proposals AffiliationID names the row to transition; for ACTIVATE it is nil
// and the subject fields describe the affiliation to create.
type AffiliationChange struct {
	AffiliationID      domain.AffiliationID
	SubjectName        string
	SubjectPESEL       string
	Role               string
	FunctionTitle      string
	RepresentationMode string
	Scope              string
	EffectiveAt        time.Time
}

// Proposal is a pure, unapplied candidate change. Exactly one of the payload
// pointers is set, matching Kind.
type Proposal struct {
	Kind       ProposalKind
	Path       string
	Source     Source
	Confidence float64
	Reason     string

	Identifier  *Identifier
	Contact     *Contact
	Address     *entity.Address
	Name        string
	Collision   *domain.EntityID
	Affiliation *AffiliationChange
}
