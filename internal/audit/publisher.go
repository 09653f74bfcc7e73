package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"registrar/pkg/requestcontext"
)

// Publisher writes audit events through the outbox store. Emit is fail-closed:
// when the outbox write fails the calling operation must fail with it.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires an action")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Actor == "" {
		event.Actor = requestcontext.Actor(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := p.store.Append(ctx, event); err != nil {
		return fmt.Errorf("audit persistence failed: %w", err)
	}
	return nil
}
