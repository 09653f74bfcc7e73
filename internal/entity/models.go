// Package entity holds the master-data aggregate: entities with their owned
// identifiers, addresses, contacts, plus registry-attested affiliations
// between entities.
package entity

import (
	"time"

	"registrar/pkg/domain"
)

type Type string

const (
	TypePhysicalPerson Type = "PHYSICAL_PERSON"
	TypeLegalPerson    Type = "LEGAL_PERSON"
)

type IdentifierType string

const (
	IdentifierPESEL IdentifierType = "PESEL"
	IdentifierNIP   IdentifierType = "NIP"
	IdentifierREGON IdentifierType = "REGON"
	IdentifierKRS   IdentifierType = "KRS"
	IdentifierRFR   IdentifierType = "RFR"
	IdentifierOther IdentifierType = "OTHER"
)

// GloballyUnique reports whether (type, value) must be unique across all
// entities. OTHER identifiers are registry-scoped and may repeat.
func (t IdentifierType) GloballyUnique() bool {
	switch t {
	case IdentifierPESEL, IdentifierNIP, IdentifierREGON, IdentifierKRS, IdentifierRFR:
		return true
	}
	return false
}

type AddressType string

const (
	AddressMain           AddressType = "MAIN"
	AddressCorrespondence AddressType = "CORRESPONDENCE"
	AddressBusiness       AddressType = "BUSINESS"
)

type ContactType string

const (
	ContactEmail   ContactType = "EMAIL"
	ContactPhone   ContactType = "PHONE"
	ContactWebsite ContactType = "WEBSITE"
	ContactEPUAP   ContactType = "EPUAP"
	ContactOther   ContactType = "OTHER"
)

// Entity is the unit of reconciliation. The owned collections are loaded as
// part of the aggregate and cascade-deleted with it.
type Entity struct {
	ID             domain.EntityID
	Type           Type
	CanonicalLabel string
	Identifiers    []Identifier
	Addresses      []Address
	Contacts       []Contact
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Identifier struct {
	ID       string
	EntityID domain.EntityID
	Type     IdentifierType
	Value    string
	// RegistryName qualifies OTHER identifiers with the issuing registry.
	RegistryName string
}

type Address struct {
	ID             string
	EntityID       domain.EntityID
	Type           AddressType
	Country        string
	Voivodeship    string
	County         string
	Gmina          string
	City           string
	PostalCode     string
	PostOffice     string
	Street         string
	BuildingNo     string
	UnitNo         string
	AdditionalLine string
}

// OneLine renders the address for logs and review output.
func (a Address) OneLine() string {
	var parts []string
	if a.Street != "" {
		s := a.Street
		if a.BuildingNo != "" {
			s += " " + a.BuildingNo
			if a.UnitNo != "" {
				s += "/" + a.UnitNo
			}
		}
		parts = append(parts, s)
	}
	if a.PostalCode != "" || a.City != "" {
		loc := a.PostalCode
		if a.City != "" {
			if loc != "" {
				loc += " "
			}
			loc += a.City
		}
		parts = append(parts, loc)
	}
	if len(parts) == 0 {
		return "(no address)"
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

type Contact struct {
	ID       string
	EntityID domain.EntityID
	Type     ContactType
	Value    string
	Label    string
	Primary  bool
}

type AffiliationStatus string

const (
	AffiliationActive  AffiliationStatus = "ACTIVE"
	AffiliationEnded   AffiliationStatus = "ENDED"
	AffiliationUnknown AffiliationStatus = "UNKNOWN"
)

// Affiliation records a registry-attested role of a subject with respect to
// an object entity (e.g. a board member of a company). SubjectEntityID is set
// when the subject could be resolved to a stored entity by exact PESEL match;
// otherwise only the normalized subject name is kept.
type Affiliation struct {
	ID                 domain.AffiliationID
	SubjectEntityID    *domain.EntityID
	SubjectName        string
	SubjectPESEL       string
	ObjectEntityID     domain.EntityID
	Type               string
	FunctionTitle      string
	RepresentationMode string
	Scope              string
	ValidFrom          *time.Time
	ValidTo            *time.Time
	Status             AffiliationStatus
	Confidence         float64
	SourceSnapshotID   *domain.SnapshotID
}
