// Package snapshot persists raw registry payloads as immutable, hash-addressed
// records. The store is append-only; snapshots are never updated or deleted.
package snapshot

import (
	"context"

	"registrar/internal/registry/models"
)

// Store is the persistence port for registry snapshots.
type Store interface {
	// Insert appends a snapshot. It never overwrites.
	Insert(ctx context.Context, snap *models.Snapshot) error
	// Latest returns the most recently fetched snapshot for the pair, or
	// sentinel.ErrNotFound when the pair has never been fetched.
	Latest(ctx context.Context, source models.Source, lookupKey string) (*models.Snapshot, error)
	// ListByKey returns all snapshots for the pair, newest first.
	ListByKey(ctx context.Context, source models.Source, lookupKey string) ([]models.Snapshot, error)
	// Get returns a snapshot by id, or sentinel.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Snapshot, error)
}
