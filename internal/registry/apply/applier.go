// Package apply executes approved proposals against the entity store. A batch
// is all-or-nothing: every proposal commits in one transaction or none do.
// The applier is the only writer of entity master data in the engine.
package apply

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"registrar/internal/audit"
	"registrar/internal/entity"
	"registrar/internal/platform/metrics"
	"registrar/internal/registry/models"
	"registrar/pkg/domain"
	domainerrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/sentinel"
	txcontext "registrar/pkg/platform/tx"
)

// Result summarizes an applied batch.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Applier mutates entity state from proposals. With a database handle the
// whole batch runs in a single transaction; without one (in-memory stores)
// writes apply directly.
type Applier struct {
	entities     entity.Store
	affiliations entity.AffiliationStore
	publisher    *audit.Publisher
	db           *sql.DB
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

func New(entities entity.Store, affiliations entity.AffiliationStore, publisher *audit.Publisher, db *sql.DB, m *metrics.Metrics, logger *slog.Logger) (*Applier, error) {
	if entities == nil {
		return nil, errors.New("entity store is required")
	}
	if affiliations == nil {
		return nil, errors.New("affiliation store is required")
	}
	if publisher == nil {
		return nil, errors.New("audit publisher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{
		entities:     entities,
		affiliations: affiliations,
		publisher:    publisher,
		db:           db,
		metrics:      m,
		logger:       logger,
	}, nil
}

// Apply executes the batch for the entity. Every proposal kind must be
// applyable; a non-applyable kind rejects the whole batch before any write.
// Conditions are re-checked at apply time, so a proposal whose change already
// holds is counted as skipped rather than failing. snapshotID stamps
// provenance on created affiliations and may be nil.
func (a *Applier) Apply(ctx context.Context, entityID domain.EntityID, proposals []models.Proposal, snapshotID *domain.SnapshotID) (Result, error) {
	for _, p := range proposals {
		if !p.Kind.Applyable() {
			return Result{}, domainerrors.Newf(domainerrors.CodeInvalidProposal, "proposal kind %s cannot be applied", p.Kind)
		}
	}
	if len(proposals) == 0 {
		return Result{}, nil
	}

	var result Result
	err := a.inTx(ctx, func(ctx context.Context) error {
		active, err := a.activeIfNeeded(ctx, entityID, proposals)
		if err != nil {
			return err
		}
		for i := range proposals {
			applied, err := a.applyOne(ctx, entityID, &proposals[i], snapshotID, &active, &result)
			if err != nil {
				return err
			}
			if applied {
				a.metrics.RecordApplied(string(proposals[i].Kind))
				if err := a.publisher.Emit(ctx, audit.Event{
					Action:   audit.ActionProposalApplied,
					EntityID: entityID.String(),
					Details: map[string]any{
						"kind":   string(proposals[i].Kind),
						"path":   proposals[i].Path,
						"source": string(proposals[i].Source),
					},
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	a.logger.InfoContext(ctx, "proposal batch applied",
		"entity_id", entityID.String(), "created", result.Created, "updated", result.Updated, "skipped", result.Skipped)
	return result, nil
}

// MarkRolesUnparsed downgrades the entity's active affiliations to UNKNOWN.
// Called when a fresh payload's role section could not be parsed, so absence
// of a role attestation proves nothing.
func (a *Applier) MarkRolesUnparsed(ctx context.Context, entityID domain.EntityID) error {
	return a.inTx(ctx, func(ctx context.Context) error {
		if err := a.affiliations.MarkUnknownByObject(ctx, entityID); err != nil {
			return err
		}
		return a.publisher.Emit(ctx, audit.Event{
			Action:   audit.ActionAffiliationsUnknown,
			EntityID: entityID.String(),
		})
	})
}

func (a *Applier) inTx(ctx context.Context, fn func(context.Context) error) error {
	if a.db == nil {
		return fn(ctx)
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply transaction: %w", err)
	}
	return nil
}

func (a *Applier) activeIfNeeded(ctx context.Context, entityID domain.EntityID, proposals []models.Proposal) ([]entity.Affiliation, error) {
	for _, p := range proposals {
		if p.Kind == models.ProposalAffiliationActivate || p.Kind == models.ProposalAffiliationEnd {
			return a.affiliations.ListActiveByObject(ctx, entityID)
		}
	}
	return nil, nil
}

func (a *Applier) applyOne(ctx context.Context, entityID domain.EntityID, p *models.Proposal, snapshotID *domain.SnapshotID, active *[]entity.Affiliation, result *Result) (bool, error) {
	switch p.Kind {
	case models.ProposalAddIdentifier:
		return a.applyIdentifier(ctx, entityID, p, result)
	case models.ProposalAddContact:
		return a.applyContact(ctx, entityID, p, result)
	case models.ProposalAddAddress:
		return a.applyAddress(ctx, entityID, p, result)
	case models.ProposalAffiliationActivate:
		return a.applyActivate(ctx, entityID, p, snapshotID, active, result)
	case models.ProposalAffiliationEnd:
		return a.applyEnd(ctx, p, active, result)
	default:
		return false, domainerrors.Newf(domainerrors.CodeInvalidProposal, "proposal kind %s cannot be applied", p.Kind)
	}
}

func (a *Applier) applyIdentifier(ctx context.Context, entityID domain.EntityID, p *models.Proposal, result *Result) (bool, error) {
	ident := p.Identifier
	if ident == nil {
		return false, domainerrors.New(domainerrors.CodeInvalidProposal, "identifier proposal has no identifier payload")
	}
	if ident.Type.GloballyUnique() {
		owner, err := a.entities.FindIdentifierOwner(ctx, ident.Type, ident.Value)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			// free to claim
		case err != nil:
			return false, err
		case owner == entityID:
			result.Skipped++
			return false, nil
		default:
			return false, domainerrors.Newf(domainerrors.CodeConflict,
				"%s %s already belongs to entity %s", ident.Type, ident.Value, owner.String())
		}
	}
	err := a.entities.AddIdentifier(ctx, entity.Identifier{
		EntityID:     entityID,
		Type:         ident.Type,
		Value:        ident.Value,
		RegistryName: ident.RegistryName,
	})
	if errors.Is(err, sentinel.ErrConflict) {
		return false, domainerrors.Wrap(domainerrors.CodeConflict, "identifier uniqueness violated at commit", err)
	}
	if err != nil {
		return false, err
	}
	result.Created++
	return true, nil
}

func (a *Applier) applyContact(ctx context.Context, entityID domain.EntityID, p *models.Proposal, result *Result) (bool, error) {
	c := p.Contact
	if c == nil {
		return false, domainerrors.New(domainerrors.CodeInvalidProposal, "contact proposal has no contact payload")
	}
	has, err := a.entities.HasContact(ctx, entityID, c.Type, c.Value)
	if err != nil {
		return false, err
	}
	if has {
		result.Skipped++
		return false, nil
	}
	if err := a.entities.AddContact(ctx, entity.Contact{
		EntityID: entityID,
		Type:     c.Type,
		Value:    c.Value,
		Label:    c.Label,
	}); err != nil {
		return false, err
	}
	result.Created++
	return true, nil
}

func (a *Applier) applyAddress(ctx context.Context, entityID domain.EntityID, p *models.Proposal, result *Result) (bool, error) {
	if p.Address == nil {
		return false, domainerrors.New(domainerrors.CodeInvalidProposal, "address proposal has no address payload")
	}
	has, err := a.entities.HasAddress(ctx, entityID, p.Address.Type)
	if err != nil {
		return false, err
	}
	if has {
		result.Skipped++
		return false, nil
	}
	addr := *p.Address
	addr.EntityID = entityID
	if err := a.entities.AddAddress(ctx, addr); err != nil {
		return false, err
	}
	result.Created++
	return true, nil
}

func (a *Applier) applyActivate(ctx context.Context, entityID domain.EntityID, p *models.Proposal, snapshotID *domain.SnapshotID, active *[]entity.Affiliation, result *Result) (bool, error) {
	change := p.Affiliation
	if change == nil {
		return false, domainerrors.New(domainerrors.CodeInvalidProposal, "affiliation proposal has no change payload")
	}
	if matchActive(*active, change) >= 0 {
		result.Skipped++
		return false, nil
	}

	aff := entity.Affiliation{
		ID:                 domain.NewAffiliationID(),
		SubjectName:        change.SubjectName,
		SubjectPESEL:       change.SubjectPESEL,
		ObjectEntityID:     entityID,
		Type:               change.Role,
		FunctionTitle:      change.FunctionTitle,
		RepresentationMode: change.RepresentationMode,
		Scope:              change.Scope,
		Status:             entity.AffiliationActive,
		Confidence:         p.Confidence,
		SourceSnapshotID:   snapshotID,
	}
	effective := change.EffectiveAt
	aff.ValidFrom = &effective

	if change.SubjectPESEL != "" {
		subject, err := a.entities.FindIdentifierOwner(ctx, entity.IdentifierPESEL, change.SubjectPESEL)
		switch {
		case err == nil:
			aff.SubjectEntityID = &subject
		case !errors.Is(err, sentinel.ErrNotFound):
			return false, err
		}
	}

	if err := a.affiliations.Insert(ctx, aff); err != nil {
		return false, err
	}
	*active = append(*active, aff)
	result.Created++
	return true, nil
}

func (a *Applier) applyEnd(ctx context.Context, p *models.Proposal, active *[]entity.Affiliation, result *Result) (bool, error) {
	change := p.Affiliation
	if change == nil || change.AffiliationID.IsNil() {
		return false, domainerrors.New(domainerrors.CodeInvalidProposal, "end proposal names no affiliation")
	}
	idx := -1
	for i := range *active {
		if (*active)[i].ID == change.AffiliationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		// already ended or never active; nothing to do
		result.Skipped++
		return false, nil
	}
	if err := a.affiliations.End(ctx, change.AffiliationID, change.EffectiveAt); err != nil {
		return false, err
	}
	*active = append((*active)[:idx], (*active)[idx+1:]...)
	result.Updated++
	return true, nil
}

// matchActive mirrors the diff engine's subject resolution: exact PESEL when
// both sides have one, normalized name otherwise.
func matchActive(active []entity.Affiliation, change *models.AffiliationChange) int {
	for i := range active {
		aff := active[i]
		if aff.Type != change.Role {
			continue
		}
		if change.SubjectPESEL != "" && aff.SubjectPESEL != "" {
			if change.SubjectPESEL == aff.SubjectPESEL {
				return i
			}
			continue
		}
		if normalizeName(aff.SubjectName) == normalizeName(change.SubjectName) {
			return i
		}
	}
	return -1
}

func normalizeName(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
