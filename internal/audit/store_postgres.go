package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	txcontext "registrar/pkg/platform/tx"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events land in the outbox table inside the caller's transaction and are
// relayed to Kafka by the Relay.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// EnsureSchema creates the outbox table.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS outbox (
			id UUID PRIMARY KEY,
			action TEXT NOT NULL,
			entity_id TEXT NOT NULL DEFAULT '',
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			published_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_outbox_unpublished
			ON outbox (created_at) WHERE published_at IS NULL;
	`)
	if err != nil {
		return fmt.Errorf("ensure outbox schema: %w", err)
	}
	return nil
}

// outboxPayload is the JSON structure published to Kafka.
type outboxPayload struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityID   string         `json:"entity_id,omitempty"`
	SnapshotID string         `json:"snapshot_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Timestamp  string         `json:"timestamp"`
	Details    map[string]any `json:"details,omitempty"`
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(outboxPayload{
		ID:         event.ID,
		Action:     event.Action,
		EntityID:   event.EntityID,
		SnapshotID: event.SnapshotID,
		Actor:      event.Actor,
		RequestID:  event.RequestID,
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		Details:    event.Details,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO outbox (id, action, entity_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, event.ID, event.Action, event.EntityID, payload, event.Timestamp)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListUnpublished(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		var p outboxPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode outbox payload: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
		out = append(out, Event{
			ID:         id,
			Action:     p.Action,
			EntityID:   p.EntityID,
			SnapshotID: p.SnapshotID,
			Actor:      p.Actor,
			RequestID:  p.RequestID,
			Timestamp:  ts,
			Details:    p.Details,
		})
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkPublished(ctx context.Context, ids []string, publishedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE outbox SET published_at = $2 WHERE id = ANY($1)
	`, pq.Array(ids), publishedAt)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
