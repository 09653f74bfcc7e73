// Package profile maintains the latest normalized view per (entity, source).
// Unlike snapshots the view is mutable: each successful normalization
// replaces the previous one.
package profile

import (
	"context"

	"registrar/internal/registry/models"
	"registrar/pkg/domain"
)

// Store is the persistence port for normalized profiles.
type Store interface {
	// Upsert replaces the stored profile for (entityID, profile.Source).
	Upsert(ctx context.Context, entityID domain.EntityID, p *models.Profile) error
	// Get returns the latest profile for the pair, or sentinel.ErrNotFound.
	Get(ctx context.Context, entityID domain.EntityID, source models.Source) (*models.Profile, error)
	// ListByEntity returns every stored profile for the entity.
	ListByEntity(ctx context.Context, entityID domain.EntityID) ([]models.Profile, error)
}
