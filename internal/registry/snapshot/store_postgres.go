package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"registrar/internal/registry/models"
	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

// PostgresStore persists snapshots in the append-only registry_snapshots
// table. Rows are only ever inserted.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the snapshot table and lookup indexes.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS registry_snapshots (
			id UUID PRIMARY KEY,
			lookup_key TEXT NOT NULL,
			source TEXT NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL,
			payload_format TEXT NOT NULL,
			payload_hash TEXT NOT NULL,
			raw_payload BYTEA NOT NULL,
			fetched_by TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_registry_snapshots_lookup
			ON registry_snapshots (source, lookup_key, fetched_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("ensure snapshot schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, snap *models.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registry_snapshots
			(id, lookup_key, source, fetched_at, payload_format, payload_hash, raw_payload, fetched_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, snap.ID.String(), snap.LookupKey, string(snap.Source), snap.FetchedAt,
		string(snap.Format), snap.Hash, snap.Raw, snap.FetchedBy)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, source models.Source, lookupKey string) (*models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, lookup_key, source, fetched_at, payload_format, payload_hash, raw_payload, fetched_by
		FROM registry_snapshots
		WHERE source = $1 AND lookup_key = $2
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`, string(source), lookupKey)
	return scanSnapshot(row)
}

func (s *PostgresStore) ListByKey(ctx context.Context, source models.Source, lookupKey string) ([]models.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lookup_key, source, fetched_at, payload_format, payload_hash, raw_payload, fetched_by
		FROM registry_snapshots
		WHERE source = $1 AND lookup_key = $2
		ORDER BY fetched_at DESC, id DESC
	`, string(source), lookupKey)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, lookup_key, source, fetched_at, payload_format, payload_hash, raw_payload, fetched_by
		FROM registry_snapshots
		WHERE id = $1
	`, id)
	return scanSnapshot(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*models.Snapshot, error) {
	var (
		snap   models.Snapshot
		rawID  string
		source string
		format string
	)
	err := row.Scan(&rawID, &snap.LookupKey, &source, &snap.FetchedAt, &format, &snap.Hash, &snap.Raw, &snap.FetchedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	id, err := domain.ParseSnapshotID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot id: %w", err)
	}
	snap.ID = id
	snap.Source = models.Source(source)
	snap.Format = models.PayloadFormat(format)
	return &snap, nil
}
