package entity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"registrar/pkg/domain"
	txcontext "registrar/pkg/platform/tx"
)

// PostgresAffiliationStore persists affiliations. Writes are tx-aware like the
// entity store so affiliation transitions commit atomically with the rest of
// an approved batch.
type PostgresAffiliationStore struct {
	db *sql.DB
}

func NewPostgresAffiliationStore(db *sql.DB) *PostgresAffiliationStore {
	return &PostgresAffiliationStore{db: db}
}

func (s *PostgresAffiliationStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresAffiliationStore) Insert(ctx context.Context, aff Affiliation) error {
	if aff.ID.IsNil() {
		aff.ID = domain.NewAffiliationID()
	}
	var subject any
	if aff.SubjectEntityID != nil {
		subject = aff.SubjectEntityID.String()
	}
	var snapshotID any
	if aff.SourceSnapshotID != nil {
		snapshotID = aff.SourceSnapshotID.String()
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO affiliations (
			id, subject_entity_id, subject_name, subject_pesel, object_entity_id, affiliation_type,
			function_title, representation_mode, scope, valid_from, valid_to,
			status, confidence, source_snapshot_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
	`, aff.ID.String(), subject, aff.SubjectName, aff.SubjectPESEL, aff.ObjectEntityID.String(), aff.Type,
		aff.FunctionTitle, aff.RepresentationMode, aff.Scope, aff.ValidFrom, aff.ValidTo,
		string(aff.Status), aff.Confidence, snapshotID)
	if err != nil {
		return fmt.Errorf("insert affiliation: %w", err)
	}
	return nil
}

func (s *PostgresAffiliationStore) ListActiveByObject(ctx context.Context, object domain.EntityID) ([]Affiliation, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, subject_entity_id, COALESCE(subject_name, ''), COALESCE(subject_pesel, ''), affiliation_type,
		       COALESCE(function_title, ''), COALESCE(representation_mode, ''),
		       COALESCE(scope, ''), valid_from, valid_to, confidence
		FROM affiliations
		WHERE object_entity_id = $1 AND status = 'ACTIVE'
		ORDER BY created_at, id
	`, object.String())
	if err != nil {
		return nil, fmt.Errorf("list active affiliations: %w", err)
	}
	defer rows.Close()

	var out []Affiliation
	for rows.Next() {
		aff := Affiliation{ObjectEntityID: object, Status: AffiliationActive}
		var id string
		var subject sql.NullString
		if err := rows.Scan(&id, &subject, &aff.SubjectName, &aff.SubjectPESEL, &aff.Type,
			&aff.FunctionTitle, &aff.RepresentationMode, &aff.Scope,
			&aff.ValidFrom, &aff.ValidTo, &aff.Confidence); err != nil {
			return nil, fmt.Errorf("scan affiliation: %w", err)
		}
		aid, err := domain.ParseAffiliationID(id)
		if err != nil {
			return nil, fmt.Errorf("parse affiliation id: %w", err)
		}
		aff.ID = aid
		if subject.Valid {
			sid, err := domain.ParseEntityID(subject.String)
			if err != nil {
				return nil, fmt.Errorf("parse subject entity id: %w", err)
			}
			aff.SubjectEntityID = &sid
		}
		out = append(out, aff)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active affiliations: %w", err)
	}
	return out, nil
}

func (s *PostgresAffiliationStore) End(ctx context.Context, id domain.AffiliationID, validTo time.Time) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE affiliations
		SET status = 'ENDED', valid_to = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'ACTIVE'
	`, id.String(), validTo)
	if err != nil {
		return fmt.Errorf("end affiliation: %w", err)
	}
	return nil
}

func (s *PostgresAffiliationStore) MarkUnknownByObject(ctx context.Context, object domain.EntityID) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE affiliations
		SET status = 'UNKNOWN', updated_at = NOW()
		WHERE object_entity_id = $1 AND status = 'ACTIVE'
	`, object.String())
	if err != nil {
		return fmt.Errorf("mark affiliations unknown: %w", err)
	}
	return nil
}
