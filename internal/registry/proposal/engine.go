// Package proposal derives candidate changes by comparing a normalized
// registry profile to the stored entity state. The diff is a pure function:
// it never touches storage and the same inputs always produce the same
// proposals in the same order.
package proposal

import (
	"fmt"
	"strings"

	"registrar/internal/entity"
	"registrar/internal/registry/collision"
	"registrar/internal/registry/models"
	domainerrors "registrar/pkg/domain-errors"
)

// Per-source confidence attached to every proposal. KRS excerpts are
// court-maintained; CEIDG is self-reported by the entrepreneur.
const (
	confidenceKRS   = 1.0
	confidenceCEIDG = 0.9
)

// EntityState is the stored view the profile is diffed against. The caller
// loads it; the engine never reads storage.
type EntityState struct {
	Entity             *entity.Entity
	ActiveAffiliations []entity.Affiliation
}

// Options tunes which informational proposals are surfaced.
type Options struct {
	// SurfaceMismatches emits VALUE_MISMATCH proposals for fields where the
	// entity and the registry disagree. Off by default; mismatch review is
	// noisy for entities tracked across both registries.
	SurfaceMismatches bool
}

// Engine computes proposals. It is stateless and safe for concurrent use.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Diff compares the profile against the entity state. Collision findings for
// the profile must be computed beforehand; identifiers held by another entity
// become COLLISION proposals instead of ADD_IDENTIFIER.
//
// Proposal order is fixed: identifiers, contacts, addresses, name, role
// facts, each in profile declaration order.
func (e *Engine) Diff(state EntityState, profile *models.Profile, findings []collision.Finding, opts Options) ([]models.Proposal, error) {
	if state.Entity == nil || state.Entity.ID.IsNil() {
		return nil, domainerrors.New(domainerrors.CodeInvalidState, "entity state is missing the entity")
	}
	if profile == nil {
		return nil, domainerrors.New(domainerrors.CodeInvalidState, "profile is required")
	}

	ownership := make(map[string]collision.Finding, len(findings))
	for _, f := range findings {
		ownership[identifierKey(f.Identifier.Type, f.Identifier.Value)] = f
	}

	confidence := confidenceKRS
	if profile.Source == models.SourceCEIDG {
		confidence = confidenceCEIDG
	}

	var proposals []models.Proposal
	add := func(p models.Proposal) {
		p.Source = profile.Source
		p.Confidence = confidence
		proposals = append(proposals, p)
	}

	e.diffIdentifiers(state.Entity, profile, ownership, opts, add)
	e.diffContacts(state.Entity, profile, add)
	e.diffAddresses(state.Entity, profile, opts, add)
	e.diffName(state.Entity, profile, add)
	e.diffRoleFacts(state, profile, add)

	return proposals, nil
}

func (e *Engine) diffIdentifiers(ent *entity.Entity, profile *models.Profile, ownership map[string]collision.Finding, opts Options, add func(models.Proposal)) {
	held := make(map[string]bool, len(ent.Identifiers))
	byType := make(map[entity.IdentifierType]string, len(ent.Identifiers))
	for _, ident := range ent.Identifiers {
		held[identifierKey(ident.Type, ident.Value)] = true
		byType[ident.Type] = ident.Value
	}

	for i := range profile.Identifiers {
		ident := profile.Identifiers[i]
		if held[identifierKey(ident.Type, ident.Value)] {
			continue
		}
		path := "identifiers/" + string(ident.Type)

		if f, ok := ownership[identifierKey(ident.Type, ident.Value)]; ok && f.Ownership == collision.OwnershipOther {
			owner := f.Owner
			add(models.Proposal{
				Kind:       models.ProposalCollision,
				Path:       path,
				Reason:     fmt.Sprintf("%s %s already belongs to entity %s", ident.Type, ident.Value, owner.String()),
				Identifier: &ident,
				Collision:  &owner,
			})
			continue
		}
		if existing, ok := byType[ident.Type]; ok && ident.Type.GloballyUnique() {
			if opts.SurfaceMismatches {
				add(models.Proposal{
					Kind:       models.ProposalValueMismatch,
					Path:       path,
					Reason:     fmt.Sprintf("registry reports %s %s but entity holds %s", ident.Type, ident.Value, existing),
					Identifier: &ident,
				})
			}
			continue
		}
		add(models.Proposal{
			Kind:       models.ProposalAddIdentifier,
			Path:       path,
			Reason:     fmt.Sprintf("registry attests %s %s not yet on the entity", ident.Type, ident.Value),
			Identifier: &ident,
		})
	}
}

func (e *Engine) diffContacts(ent *entity.Entity, profile *models.Profile, add func(models.Proposal)) {
	held := make(map[string]bool, len(ent.Contacts))
	for _, c := range ent.Contacts {
		held[contactKey(c.Type, c.Value)] = true
	}
	for i := range profile.Contacts {
		c := profile.Contacts[i]
		if held[contactKey(c.Type, c.Value)] {
			continue
		}
		add(models.Proposal{
			Kind:    models.ProposalAddContact,
			Path:    "contacts/" + string(c.Type),
			Reason:  fmt.Sprintf("registry lists %s contact %s", c.Type, c.Value),
			Contact: &c,
		})
	}
}

func (e *Engine) diffAddresses(ent *entity.Entity, profile *models.Profile, opts Options, add func(models.Proposal)) {
	byType := make(map[entity.AddressType]entity.Address, len(ent.Addresses))
	for _, a := range ent.Addresses {
		if _, ok := byType[a.Type]; !ok {
			byType[a.Type] = a
		}
	}
	for i := range profile.Addresses {
		addr := profile.Addresses[i]
		existing, ok := byType[addr.Type]
		if !ok {
			add(models.Proposal{
				Kind:    models.ProposalAddAddress,
				Path:    "addresses/" + string(addr.Type),
				Reason:  fmt.Sprintf("registry lists a %s address the entity lacks", addr.Type),
				Address: &addr,
			})
			byType[addr.Type] = addr
			continue
		}
		if opts.SurfaceMismatches && existing.OneLine() != addr.OneLine() {
			add(models.Proposal{
				Kind:    models.ProposalValueMismatch,
				Path:    "addresses/" + string(addr.Type),
				Reason:  fmt.Sprintf("registry %s address %q differs from stored %q", addr.Type, addr.OneLine(), existing.OneLine()),
				Address: &addr,
			})
		}
	}
}

func (e *Engine) diffName(ent *entity.Entity, profile *models.Profile, add func(models.Proposal)) {
	registryLabel := strings.TrimSpace(profile.Label())
	storedLabel := strings.TrimSpace(ent.CanonicalLabel)
	if registryLabel == "" || storedLabel == "" || registryLabel == storedLabel {
		return
	}
	add(models.Proposal{
		Kind:   models.ProposalNameMismatch,
		Path:   "canonical_label",
		Reason: fmt.Sprintf("registry label %q differs from stored %q", registryLabel, storedLabel),
		Name:   registryLabel,
	})
}

// diffRoleFacts reconciles registry-attested roles with active affiliations.
// When the payload's role section did not parse, no END proposals are emitted;
// the service downgrades active affiliations to UNKNOWN instead.
func (e *Engine) diffRoleFacts(state EntityState, profile *models.Profile, add func(models.Proposal)) {
	matched := make(map[int]bool, len(state.ActiveAffiliations))

	for i := range profile.RoleFacts {
		fact := profile.RoleFacts[i]
		idx := matchAffiliation(state.ActiveAffiliations, fact)
		if idx >= 0 {
			matched[idx] = true
			continue
		}
		add(models.Proposal{
			Kind:   models.ProposalAffiliationActivate,
			Path:   "affiliations/" + fact.Role,
			Reason: fmt.Sprintf("registry attests %s as %s", fact.SubjectName, fact.Role),
			Affiliation: &models.AffiliationChange{
				SubjectName:        fact.SubjectName,
				SubjectPESEL:       fact.SubjectPESEL,
				Role:               fact.Role,
				FunctionTitle:      fact.FunctionTitle,
				RepresentationMode: fact.RepresentationMode,
				Scope:              fact.Scope,
				EffectiveAt:        profile.FetchedAt,
			},
		})
	}

	if !profile.RolesParsed {
		return
	}
	for i := range state.ActiveAffiliations {
		if matched[i] {
			continue
		}
		aff := state.ActiveAffiliations[i]
		add(models.Proposal{
			Kind:   models.ProposalAffiliationEnd,
			Path:   "affiliations/" + aff.Type,
			Reason: fmt.Sprintf("registry no longer attests %s as %s", aff.SubjectName, aff.Type),
			Affiliation: &models.AffiliationChange{
				AffiliationID: aff.ID,
				SubjectName:   aff.SubjectName,
				Role:          aff.Type,
				EffectiveAt:   profile.FetchedAt,
			},
		})
	}
}

// matchAffiliation resolves a role fact against active affiliations: exact
// PESEL match when both sides carry one, otherwise a normalized name match.
// Role kinds must agree either way.
func matchAffiliation(active []entity.Affiliation, fact models.RoleFact) int {
	for i := range active {
		aff := active[i]
		if aff.Type != fact.Role {
			continue
		}
		if fact.SubjectPESEL != "" && aff.SubjectPESEL != "" {
			if fact.SubjectPESEL == aff.SubjectPESEL {
				return i
			}
			continue
		}
		if normalizeName(aff.SubjectName) == normalizeName(fact.SubjectName) {
			return i
		}
	}
	return -1
}

func normalizeName(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

func identifierKey(typ entity.IdentifierType, value string) string {
	return string(typ) + ":" + value
}

func contactKey(typ entity.ContactType, value string) string {
	return string(typ) + ":" + strings.ToLower(strings.TrimSpace(value))
}
