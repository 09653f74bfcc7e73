// Package collision checks globally unique identifiers extracted from a
// registry profile against current ownership before any write is proposed.
package collision

import (
	"context"
	"errors"
	"log/slog"

	"registrar/internal/entity"
	"registrar/internal/registry/models"
	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

// Ownership classifies how an identifier relates to the entity being
// enriched.
type Ownership string

const (
	// OwnershipFree means no entity holds the identifier.
	OwnershipFree Ownership = "FREE"
	// OwnershipSelf means the enriched entity already holds it.
	OwnershipSelf Ownership = "SELF"
	// OwnershipOther means a different entity holds it.
	OwnershipOther Ownership = "OTHER"
)

// Finding is the verdict for a single globally unique identifier.
type Finding struct {
	Identifier models.Identifier
	Ownership  Ownership
	// Owner is set when Ownership is OwnershipOther.
	Owner domain.EntityID
}

// Detector resolves identifier ownership through the entity store. Detection
// is read-only; it never mutates anything.
type Detector struct {
	store  entity.Store
	logger *slog.Logger
}

func NewDetector(store entity.Store, logger *slog.Logger) (*Detector, error) {
	if store == nil {
		return nil, errors.New("entity store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{store: store, logger: logger}, nil
}

// Check classifies every globally unique identifier in the profile against
// the entity being enriched. Identifier types without a global uniqueness
// guarantee are skipped.
func (d *Detector) Check(ctx context.Context, entityID domain.EntityID, profile *models.Profile) ([]Finding, error) {
	var findings []Finding
	for _, ident := range profile.Identifiers {
		if !ident.Type.GloballyUnique() {
			continue
		}
		finding, err := d.checkOne(ctx, entityID, ident)
		if err != nil {
			return nil, err
		}
		findings = append(findings, finding)
	}
	return findings, nil
}

func (d *Detector) checkOne(ctx context.Context, entityID domain.EntityID, ident models.Identifier) (Finding, error) {
	owner, err := d.store.FindIdentifierOwner(ctx, ident.Type, ident.Value)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return Finding{Identifier: ident, Ownership: OwnershipFree}, nil
	case err != nil:
		return Finding{}, err
	case owner == entityID:
		return Finding{Identifier: ident, Ownership: OwnershipSelf}, nil
	default:
		d.logger.WarnContext(ctx, "identifier collision detected",
			"identifier_type", ident.Type, "entity_id", entityID.String(), "owner_id", owner.String())
		return Finding{Identifier: ident, Ownership: OwnershipOther, Owner: owner}, nil
	}
}
