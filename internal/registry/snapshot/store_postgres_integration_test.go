//go:build integration

package snapshot_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"registrar/internal/registry/models"
	"registrar/internal/registry/snapshot"
	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
	"registrar/pkg/testutil/containers"
)

type PostgresSnapshotSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *snapshot.PostgresStore
}

func TestPostgresSnapshotSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSnapshotSuite))
}

func (s *PostgresSnapshotSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = snapshot.NewPostgresStore(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresSnapshotSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "registry_snapshots"))
}

func newTestSnapshot(lookupKey string, fetchedAt time.Time, body string) *models.Snapshot {
	return &models.Snapshot{
		ID:        domain.NewSnapshotID(),
		LookupKey: lookupKey,
		Source:    models.SourceKRS,
		FetchedAt: fetchedAt,
		Format:    models.FormatJSON,
		Hash:      snapshot.PayloadHash([]byte(body)),
		Raw:       []byte(body),
		FetchedBy: "op@example.pl",
	}
}

func (s *PostgresSnapshotSuite) TestInsertAndGet() {
	ctx := context.Background()
	snap := newTestSnapshot("0000012345", time.Now().UTC().Truncate(time.Microsecond), `{"a":1}`)

	s.Require().NoError(s.store.Insert(ctx, snap))

	got, err := s.store.Get(ctx, snap.ID.String())
	s.Require().NoError(err)
	s.Equal(snap.ID, got.ID)
	s.Equal(snap.Hash, got.Hash)
	s.Equal([]byte(`{"a":1}`), got.Raw)
	s.Equal("op@example.pl", got.FetchedBy)
}

func (s *PostgresSnapshotSuite) TestLatestOrdersByFetchedAt() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	older := newTestSnapshot("0000012345", base.Add(-time.Hour), `{"v":1}`)
	newer := newTestSnapshot("0000012345", base, `{"v":2}`)
	s.Require().NoError(s.store.Insert(ctx, older))
	s.Require().NoError(s.store.Insert(ctx, newer))

	got, err := s.store.Latest(ctx, models.SourceKRS, "0000012345")
	s.Require().NoError(err)
	s.Equal(newer.ID, got.ID)

	history, err := s.store.ListByKey(ctx, models.SourceKRS, "0000012345")
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(newer.ID, history[0].ID)
	s.Equal(older.ID, history[1].ID)
}

func (s *PostgresSnapshotSuite) TestLatestUnknownPair() {
	_, err := s.store.Latest(context.Background(), models.SourceCEIDG, "NIP:0000000000")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
