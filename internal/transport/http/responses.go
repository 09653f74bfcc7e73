package httptransport

import (
	"time"

	"registrar/internal/entity"
	"registrar/internal/registry/apply"
	"registrar/internal/registry/collision"
	"registrar/internal/registry/models"
	"registrar/internal/registry/service"
)

type IdentifierDTO struct {
	Type         string `json:"type"`
	Value        string `json:"value"`
	RegistryName string `json:"registry_name,omitempty"`
}

type ContactDTO struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

type AddressDTO struct {
	Type           string `json:"type"`
	Country        string `json:"country,omitempty"`
	Voivodeship    string `json:"voivodeship,omitempty"`
	County         string `json:"county,omitempty"`
	Gmina          string `json:"gmina,omitempty"`
	City           string `json:"city,omitempty"`
	PostalCode     string `json:"postal_code,omitempty"`
	PostOffice     string `json:"post_office,omitempty"`
	Street         string `json:"street,omitempty"`
	BuildingNo     string `json:"building_no,omitempty"`
	UnitNo         string `json:"unit_no,omitempty"`
	AdditionalLine string `json:"additional_line,omitempty"`
}

type AffiliationChangeDTO struct {
	AffiliationID      string `json:"affiliation_id,omitempty"`
	SubjectName        string `json:"subject_name,omitempty"`
	SubjectPESEL       string `json:"subject_pesel,omitempty"`
	Role               string `json:"role,omitempty"`
	FunctionTitle      string `json:"function_title,omitempty"`
	RepresentationMode string `json:"representation_mode,omitempty"`
	Scope              string `json:"scope,omitempty"`
	EffectiveAt        string `json:"effective_at,omitempty"`
}

type ProposalDTO struct {
	Kind       string  `json:"kind"`
	Path       string  `json:"path"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`

	Identifier   *IdentifierDTO        `json:"identifier,omitempty"`
	Contact      *ContactDTO           `json:"contact,omitempty"`
	Address      *AddressDTO           `json:"address,omitempty"`
	Name         string                `json:"name,omitempty"`
	CollidesWith string                `json:"collides_with,omitempty"`
	Affiliation  *AffiliationChangeDTO `json:"affiliation,omitempty"`
}

type FindingDTO struct {
	Identifier IdentifierDTO `json:"identifier"`
	Ownership  string        `json:"ownership"`
	Owner      string        `json:"owner,omitempty"`
}

type EnrichResponse struct {
	SnapshotID  string        `json:"snapshot_id"`
	NewSnapshot bool          `json:"new_snapshot"`
	Source      string        `json:"source"`
	LookupKey   string        `json:"lookup_key"`
	Findings    []FindingDTO  `json:"findings"`
	Proposals   []ProposalDTO `json:"proposals"`
	Applied     *ApplyResult  `json:"applied,omitempty"`
}

type ApplyResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

type SnapshotDTO struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	LookupKey string    `json:"lookup_key"`
	FetchedAt time.Time `json:"fetched_at"`
	Format    string    `json:"format"`
	Hash      string    `json:"hash"`
	FetchedBy string    `json:"fetched_by,omitempty"`
}

type EntityResponse struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	CanonicalLabel string          `json:"canonical_label"`
	Identifiers    []IdentifierDTO `json:"identifiers,omitempty"`
	Addresses      []AddressDTO    `json:"addresses,omitempty"`
	Contacts       []ContactDTO    `json:"contacts,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func FromEnrichResult(result *service.EnrichResult) EnrichResponse {
	resp := EnrichResponse{
		SnapshotID:  result.Snapshot.ID.String(),
		NewSnapshot: result.IsNewSnapshot,
		Source:      string(result.Snapshot.Source),
		LookupKey:   result.Snapshot.LookupKey,
		Findings:    make([]FindingDTO, 0, len(result.Findings)),
		Proposals:   make([]ProposalDTO, 0, len(result.Proposals)),
	}
	for _, f := range result.Findings {
		resp.Findings = append(resp.Findings, FromFinding(f))
	}
	for _, p := range result.Proposals {
		resp.Proposals = append(resp.Proposals, FromProposal(p))
	}
	if result.Applied != nil {
		resp.Applied = &ApplyResult{
			Created: result.Applied.Created,
			Updated: result.Applied.Updated,
			Skipped: result.Applied.Skipped,
		}
	}
	return resp
}

func FromFinding(f collision.Finding) FindingDTO {
	dto := FindingDTO{
		Identifier: FromIdentifier(f.Identifier),
		Ownership:  string(f.Ownership),
	}
	if f.Ownership == collision.OwnershipOther {
		dto.Owner = f.Owner.String()
	}
	return dto
}

func FromIdentifier(ident models.Identifier) IdentifierDTO {
	return IdentifierDTO{
		Type:         string(ident.Type),
		Value:        ident.Value,
		RegistryName: ident.RegistryName,
	}
}

func FromProposal(p models.Proposal) ProposalDTO {
	dto := ProposalDTO{
		Kind:       string(p.Kind),
		Path:       p.Path,
		Source:     string(p.Source),
		Confidence: p.Confidence,
		Reason:     p.Reason,
		Name:       p.Name,
	}
	if p.Identifier != nil {
		ident := FromIdentifier(*p.Identifier)
		dto.Identifier = &ident
	}
	if p.Contact != nil {
		dto.Contact = &ContactDTO{
			Type:  string(p.Contact.Type),
			Value: p.Contact.Value,
			Label: p.Contact.Label,
		}
	}
	if p.Address != nil {
		addr := FromAddress(*p.Address)
		dto.Address = &addr
	}
	if p.Collision != nil {
		dto.CollidesWith = p.Collision.String()
	}
	if p.Affiliation != nil {
		change := &AffiliationChangeDTO{
			SubjectName:        p.Affiliation.SubjectName,
			SubjectPESEL:       p.Affiliation.SubjectPESEL,
			Role:               p.Affiliation.Role,
			FunctionTitle:      p.Affiliation.FunctionTitle,
			RepresentationMode: p.Affiliation.RepresentationMode,
			Scope:              p.Affiliation.Scope,
		}
		if !p.Affiliation.AffiliationID.IsNil() {
			change.AffiliationID = p.Affiliation.AffiliationID.String()
		}
		if !p.Affiliation.EffectiveAt.IsZero() {
			change.EffectiveAt = p.Affiliation.EffectiveAt.Format(time.RFC3339)
		}
		dto.Affiliation = change
	}
	return dto
}

func FromAddress(a entity.Address) AddressDTO {
	return AddressDTO{
		Type:           string(a.Type),
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

func FromApplyResult(r apply.Result) ApplyResult {
	return ApplyResult{Created: r.Created, Updated: r.Updated, Skipped: r.Skipped}
}

func FromSnapshot(s models.Snapshot) SnapshotDTO {
	return SnapshotDTO{
		ID:        s.ID.String(),
		Source:    string(s.Source),
		LookupKey: s.LookupKey,
		FetchedAt: s.FetchedAt,
		Format:    string(s.Format),
		Hash:      s.Hash,
		FetchedBy: s.FetchedBy,
	}
}

func FromEntity(e *entity.Entity) EntityResponse {
	resp := EntityResponse{
		ID:             e.ID.String(),
		Type:           string(e.Type),
		CanonicalLabel: e.CanonicalLabel,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
	for _, ident := range e.Identifiers {
		resp.Identifiers = append(resp.Identifiers, IdentifierDTO{
			Type:         string(ident.Type),
			Value:        ident.Value,
			RegistryName: ident.RegistryName,
		})
	}
	for _, addr := range e.Addresses {
		resp.Addresses = append(resp.Addresses, FromAddress(addr))
	}
	for _, c := range e.Contacts {
		resp.Contacts = append(resp.Contacts, ContactDTO{
			Type:  string(c.Type),
			Value: c.Value,
			Label: c.Label,
		})
	}
	return resp
}
