package entity

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the master-data tables when missing. Statements are
// idempotent so repeated startup runs are safe.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entities (
			id              UUID PRIMARY KEY,
			entity_type     TEXT NOT NULL,
			canonical_label TEXT,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS identifiers (
			id               UUID PRIMARY KEY,
			entity_id        UUID NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			identifier_type  TEXT NOT NULL,
			identifier_value TEXT NOT NULL,
			registry_name    TEXT,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		// The global-uniqueness invariant is enforced here, not only in the
		// engine: OTHER identifiers are exempt.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_identifiers_global_unique
			ON identifiers (identifier_type, identifier_value)
			WHERE identifier_type IN ('PESEL', 'NIP', 'REGON', 'KRS', 'RFR')`,
		`CREATE INDEX IF NOT EXISTS idx_identifiers_entity ON identifiers (entity_id)`,
		`CREATE TABLE IF NOT EXISTS addresses (
			id              UUID PRIMARY KEY,
			entity_id       UUID NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			address_type    TEXT NOT NULL,
			country         TEXT,
			voivodeship     TEXT,
			county          TEXT,
			gmina           TEXT,
			city            TEXT,
			postal_code     TEXT,
			post_office     TEXT,
			street          TEXT,
			building_no     TEXT,
			unit_no         TEXT,
			additional_line TEXT,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_addresses_entity ON addresses (entity_id)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id            UUID PRIMARY KEY,
			entity_id     UUID NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			contact_type  TEXT NOT NULL,
			contact_value TEXT NOT NULL,
			label         TEXT,
			is_primary    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_entity ON contacts (entity_id)`,
		`CREATE TABLE IF NOT EXISTS affiliations (
			id                  UUID PRIMARY KEY,
			subject_entity_id   UUID REFERENCES entities(id) ON DELETE SET NULL,
			subject_name        TEXT,
			subject_pesel       TEXT,
			object_entity_id    UUID NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			affiliation_type    TEXT NOT NULL,
			function_title      TEXT,
			representation_mode TEXT,
			scope               TEXT,
			valid_from          TIMESTAMPTZ,
			valid_to            TIMESTAMPTZ,
			status              TEXT NOT NULL,
			confidence          DOUBLE PRECISION NOT NULL DEFAULT 1,
			source_snapshot_id  UUID,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_affiliations_object ON affiliations (object_entity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_affiliations_subject ON affiliations (subject_entity_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure entity schema: %w", err)
		}
	}
	return nil
}
