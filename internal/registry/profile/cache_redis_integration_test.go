//go:build integration

package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	platformredis "registrar/internal/platform/redis"
	"registrar/internal/registry/models"
	"registrar/internal/registry/profile"
	"registrar/pkg/testutil/containers"
)

type FetchCacheSuite struct {
	suite.Suite
	cache *profile.FetchCache
}

func TestFetchCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(FetchCacheSuite))
}

func (s *FetchCacheSuite) SetupSuite() {
	rc := containers.NewRedisContainer(s.T())
	client, err := platformredis.New(rc.URL)
	s.Require().NoError(err)
	s.cache = profile.NewFetchCache(client, time.Minute, nil, nil)
}

func (s *FetchCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	payload := models.RawPayload{
		Bytes:           []byte(`{"odpis":{}}`),
		Format:          models.FormatJSON,
		SourceTimestamp: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}

	_, ok := s.cache.Get(ctx, models.SourceKRS, "0000012345")
	s.False(ok)

	s.cache.Put(ctx, models.SourceKRS, "0000012345", payload)

	got, ok := s.cache.Get(ctx, models.SourceKRS, "0000012345")
	s.Require().True(ok)
	s.Equal(payload.Bytes, got.Bytes)
	s.Equal(payload.Format, got.Format)
	s.True(payload.SourceTimestamp.Equal(got.SourceTimestamp))
}

func (s *FetchCacheSuite) TestNilCache() {
	var nilCache *profile.FetchCache
	_, ok := nilCache.Get(context.Background(), models.SourceKRS, "x")
	s.False(ok)
	nilCache.Put(context.Background(), models.SourceKRS, "x", models.RawPayload{})
}
