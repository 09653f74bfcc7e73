package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"registrar/internal/registry/models"
	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
	txcontext "registrar/pkg/platform/tx"
)

// PostgresStore keeps the latest profile per (entity, source) as a jsonb
// document; history lives in the snapshot table, not here.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// EnsureSchema creates the profile view table.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS registry_profiles (
			entity_id UUID NOT NULL,
			source TEXT NOT NULL,
			lookup_key TEXT NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL,
			profile JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (entity_id, source)
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure profile schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, entityID domain.EntityID, p *models.Profile) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO registry_profiles (entity_id, source, lookup_key, fetched_at, profile, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (entity_id, source) DO UPDATE SET
			lookup_key = EXCLUDED.lookup_key,
			fetched_at = EXCLUDED.fetched_at,
			profile = EXCLUDED.profile,
			updated_at = NOW()
	`, entityID.String(), string(p.Source), p.LookupKey, p.FetchedAt, doc)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, entityID domain.EntityID, source models.Source) (*models.Profile, error) {
	var doc []byte
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT profile FROM registry_profiles WHERE entity_id = $1 AND source = $2
	`, entityID.String(), string(source)).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	var p models.Profile
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entityID domain.EntityID) ([]models.Profile, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT profile FROM registry_profiles WHERE entity_id = $1 ORDER BY source
	`, entityID.String())
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []models.Profile
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		var p models.Profile
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
