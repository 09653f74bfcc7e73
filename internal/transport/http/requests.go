package httptransport

import (
	"time"

	"registrar/internal/entity"
	"registrar/internal/registry/models"
	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
)

// EnrichRequest is the body of POST /entities/{id}/enrich.
type EnrichRequest struct {
	Source            string `json:"source"`
	LookupKey         string `json:"lookup_key,omitempty"`
	SurfaceMismatches bool   `json:"surface_mismatches,omitempty"`
}

// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *EnrichRequest) Validate() error {
	switch models.Source(r.Source) {
	case models.SourceKRS, models.SourceCEIDG:
		return nil
	}
	return dErrors.Newf(dErrors.CodeBadRequest, "unknown source %q", r.Source)
}

// ApplyRequest is the body of POST /entities/{id}/proposals/apply. Proposals
// are the ones a previous enrich returned, possibly filtered by a reviewer.
type ApplyRequest struct {
	SnapshotID string        `json:"snapshot_id,omitempty"`
	Proposals  []ProposalDTO `json:"proposals"`
}

func (r *ApplyRequest) Validate() error {
	if len(r.Proposals) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "at least one proposal is required")
	}
	if r.SnapshotID != "" {
		if _, err := domain.ParseSnapshotID(r.SnapshotID); err != nil {
			return dErrors.Newf(dErrors.CodeBadRequest, "invalid snapshot_id %q", r.SnapshotID)
		}
	}
	for i, p := range r.Proposals {
		if !models.ProposalKind(p.Kind).Applyable() {
			return dErrors.Newf(dErrors.CodeInvalidProposal, "proposal %d kind %q is not applyable", i, p.Kind)
		}
	}
	return nil
}

// CreateEntityRequest is the body of POST /entities.
type CreateEntityRequest struct {
	Type           string          `json:"type"`
	CanonicalLabel string          `json:"canonical_label"`
	Identifiers    []IdentifierDTO `json:"identifiers,omitempty"`
}

func (r *CreateEntityRequest) Validate() error {
	switch entity.Type(r.Type) {
	case entity.TypePhysicalPerson, entity.TypeLegalPerson:
	default:
		return dErrors.Newf(dErrors.CodeBadRequest, "unknown entity type %q", r.Type)
	}
	if r.CanonicalLabel == "" {
		return dErrors.New(dErrors.CodeBadRequest, "canonical_label is required")
	}
	// Canonicalize structured identifiers here so the stored values match
	// what the diff and collision checks compare against.
	for i, ident := range r.Identifiers {
		typ := entity.IdentifierType(ident.Type)
		if !typ.GloballyUnique() {
			continue
		}
		v, err := entity.NormalizeIdentifier(typ, ident.Value)
		if err != nil {
			return dErrors.Wrap(dErrors.CodeBadRequest, "invalid identifier", err)
		}
		r.Identifiers[i].Value = v
	}
	return nil
}

func (r *CreateEntityRequest) ToEntity() *entity.Entity {
	e := &entity.Entity{
		Type:           entity.Type(r.Type),
		CanonicalLabel: r.CanonicalLabel,
	}
	for _, ident := range r.Identifiers {
		e.Identifiers = append(e.Identifiers, entity.Identifier{
			Type:         entity.IdentifierType(ident.Type),
			Value:        ident.Value,
			RegistryName: ident.RegistryName,
		})
	}
	return e
}

// ToProposals rebuilds domain proposals from the request body.
func (r *ApplyRequest) ToProposals() []models.Proposal {
	out := make([]models.Proposal, 0, len(r.Proposals))
	for _, p := range r.Proposals {
		out = append(out, p.ToProposal())
	}
	return out
}

func (r *ApplyRequest) ParsedSnapshotID() *domain.SnapshotID {
	if r.SnapshotID == "" {
		return nil
	}
	id, err := domain.ParseSnapshotID(r.SnapshotID)
	if err != nil {
		return nil
	}
	return &id
}

func (p ProposalDTO) ToProposal() models.Proposal {
	out := models.Proposal{
		Kind:       models.ProposalKind(p.Kind),
		Path:       p.Path,
		Source:     models.Source(p.Source),
		Confidence: p.Confidence,
		Reason:     p.Reason,
		Name:       p.Name,
	}
	if p.Identifier != nil {
		out.Identifier = &models.Identifier{
			Type:         entity.IdentifierType(p.Identifier.Type),
			Value:        p.Identifier.Value,
			RegistryName: p.Identifier.RegistryName,
		}
	}
	if p.Contact != nil {
		out.Contact = &models.Contact{
			Type:  entity.ContactType(p.Contact.Type),
			Value: p.Contact.Value,
			Label: p.Contact.Label,
		}
	}
	if p.Address != nil {
		addr := p.Address.ToAddress()
		out.Address = &addr
	}
	if p.Affiliation != nil {
		change := models.AffiliationChange{
			SubjectName:        p.Affiliation.SubjectName,
			SubjectPESEL:       p.Affiliation.SubjectPESEL,
			Role:               p.Affiliation.Role,
			FunctionTitle:      p.Affiliation.FunctionTitle,
			RepresentationMode: p.Affiliation.RepresentationMode,
			Scope:              p.Affiliation.Scope,
		}
		if p.Affiliation.AffiliationID != "" {
			if id, err := domain.ParseAffiliationID(p.Affiliation.AffiliationID); err == nil {
				change.AffiliationID = id
			}
		}
		if p.Affiliation.EffectiveAt != "" {
			if t, err := time.Parse(time.RFC3339, p.Affiliation.EffectiveAt); err == nil {
				change.EffectiveAt = t
			}
		}
		out.Affiliation = &change
	}
	return out
}

func (a AddressDTO) ToAddress() entity.Address {
	return entity.Address{
		Type:           entity.AddressType(a.Type),
		Country:        a.Country,
		Voivodeship:    a.Voivodeship,
		County:         a.County,
		Gmina:          a.Gmina,
		City:           a.City,
		PostalCode:     a.PostalCode,
		PostOffice:     a.PostOffice,
		Street:         a.Street,
		BuildingNo:     a.BuildingNo,
		UnitNo:         a.UnitNo,
		AdditionalLine: a.AdditionalLine,
	}
}
