package audit

import (
	"context"
	"time"
)

// Store is the outbox persistence port. Append participates in the caller's
// transaction when one is carried in the context.
type Store interface {
	Append(ctx context.Context, event Event) error
	// ListUnpublished returns up to limit events not yet relayed, oldest
	// first.
	ListUnpublished(ctx context.Context, limit int) ([]Event, error)
	// MarkPublished stamps the events as relayed.
	MarkPublished(ctx context.Context, ids []string, publishedAt time.Time) error
}
