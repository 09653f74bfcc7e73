package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
	txcontext "registrar/pkg/platform/tx"
)

// PostgresStore persists entity aggregates in PostgreSQL. Mutations run on a
// transaction found in the context when the applier supplies one.
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

func (s *PostgresStore) Create(ctx context.Context, e *Entity) error {
	if e.ID.IsNil() {
		e.ID = domain.NewEntityID()
	}
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO entities (id, entity_type, canonical_label, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID.String(), string(e.Type), e.CanonicalLabel, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return translatePQ("insert entity", err)
	}
	for _, ident := range e.Identifiers {
		ident.EntityID = e.ID
		if err := s.AddIdentifier(ctx, ident); err != nil {
			return err
		}
	}
	for _, addr := range e.Addresses {
		addr.EntityID = e.ID
		if err := s.AddAddress(ctx, addr); err != nil {
			return err
		}
	}
	for _, c := range e.Contacts {
		c.EntityID = e.ID
		if err := s.AddContact(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.EntityID) (*Entity, error) {
	ex := s.execer(ctx)
	e := Entity{ID: id}
	var typ string
	err := ex.QueryRowContext(ctx, `
		SELECT entity_type, canonical_label, created_at, updated_at
		FROM entities WHERE id = $1
	`, id.String()).Scan(&typ, &e.CanonicalLabel, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	e.Type = Type(typ)

	rows, err := ex.QueryContext(ctx, `
		SELECT id, identifier_type, identifier_value, COALESCE(registry_name, '')
		FROM identifiers WHERE entity_id = $1 ORDER BY created_at, id
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("list identifiers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		ident := Identifier{EntityID: id}
		var it string
		if err := rows.Scan(&ident.ID, &it, &ident.Value, &ident.RegistryName); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		ident.Type = IdentifierType(it)
		e.Identifiers = append(e.Identifiers, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list identifiers: %w", err)
	}

	addrRows, err := ex.QueryContext(ctx, `
		SELECT id, address_type, COALESCE(country, ''), COALESCE(voivodeship, ''),
		       COALESCE(county, ''), COALESCE(gmina, ''), COALESCE(city, ''),
		       COALESCE(postal_code, ''), COALESCE(post_office, ''), COALESCE(street, ''),
		       COALESCE(building_no, ''), COALESCE(unit_no, ''), COALESCE(additional_line, '')
		FROM addresses WHERE entity_id = $1 ORDER BY created_at, id
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer addrRows.Close()
	for addrRows.Next() {
		addr := Address{EntityID: id}
		var at string
		if err := addrRows.Scan(&addr.ID, &at, &addr.Country, &addr.Voivodeship,
			&addr.County, &addr.Gmina, &addr.City, &addr.PostalCode, &addr.PostOffice,
			&addr.Street, &addr.BuildingNo, &addr.UnitNo, &addr.AdditionalLine); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addr.Type = AddressType(at)
		e.Addresses = append(e.Addresses, addr)
	}
	if err := addrRows.Err(); err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}

	contactRows, err := ex.QueryContext(ctx, `
		SELECT id, contact_type, contact_value, COALESCE(label, ''), is_primary
		FROM contacts WHERE entity_id = $1 ORDER BY created_at, id
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer contactRows.Close()
	for contactRows.Next() {
		c := Contact{EntityID: id}
		var ct string
		if err := contactRows.Scan(&c.ID, &ct, &c.Value, &c.Label, &c.Primary); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		c.Type = ContactType(ct)
		e.Contacts = append(e.Contacts, c)
	}
	if err := contactRows.Err(); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	return &e, nil
}

func (s *PostgresStore) AddIdentifier(ctx context.Context, ident Identifier) error {
	if ident.Type.GloballyUnique() {
		v, err := NormalizeIdentifier(ident.Type, ident.Value)
		if err != nil {
			return err
		}
		ident.Value = v
	}
	if ident.ID == "" {
		ident.ID = uuid.NewString()
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO identifiers (id, entity_id, identifier_type, identifier_value, registry_name, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NOW())
	`, ident.ID, ident.EntityID.String(), string(ident.Type), ident.Value, ident.RegistryName)
	return translatePQ("insert identifier", err)
}

func (s *PostgresStore) AddAddress(ctx context.Context, addr Address) error {
	if addr.ID == "" {
		addr.ID = uuid.NewString()
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO addresses (
			id, entity_id, address_type, country, voivodeship, county, gmina, city,
			postal_code, post_office, street, building_no, unit_no, additional_line, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
	`, addr.ID, addr.EntityID.String(), string(addr.Type), addr.Country, addr.Voivodeship,
		addr.County, addr.Gmina, addr.City, addr.PostalCode, addr.PostOffice,
		addr.Street, addr.BuildingNo, addr.UnitNo, addr.AdditionalLine)
	return translatePQ("insert address", err)
}

func (s *PostgresStore) AddContact(ctx context.Context, contact Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO contacts (id, entity_id, contact_type, contact_value, label, is_primary, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NOW())
	`, contact.ID, contact.EntityID.String(), string(contact.Type), contact.Value, contact.Label, contact.Primary)
	return translatePQ("insert contact", err)
}

func (s *PostgresStore) FindIdentifierOwner(ctx context.Context, typ IdentifierType, value string) (domain.EntityID, error) {
	var owner string
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT entity_id FROM identifiers
		WHERE identifier_type = $1 AND identifier_value = $2
		LIMIT 1
	`, string(typ), value).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EntityID{}, sentinel.ErrNotFound
	}
	if err != nil {
		return domain.EntityID{}, fmt.Errorf("find identifier owner: %w", err)
	}
	return domain.ParseEntityID(owner)
}

func (s *PostgresStore) HasContact(ctx context.Context, id domain.EntityID, typ ContactType, value string) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM contacts
			WHERE entity_id = $1 AND contact_type = $2 AND LOWER(contact_value) = LOWER($3)
		)
	`, id.String(), string(typ), value).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has contact: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) HasAddress(ctx context.Context, id domain.EntityID, typ AddressType) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM addresses WHERE entity_id = $1 AND address_type = $2
		)
	`, id.String(), string(typ)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has address: %w", err)
	}
	return exists, nil
}

// translatePQ maps the unique_violation class onto the conflict sentinel so
// the applier can distinguish races from infrastructure failures.
func translatePQ(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
