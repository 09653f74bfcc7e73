package profile

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"registrar/internal/platform/metrics"
	platformredis "registrar/internal/platform/redis"
	"registrar/internal/registry/models"
)

const fetchKeyPrefix = "registrar:fetch:"

// FetchCache short-circuits repeat registry fetches within the TTL window.
// A nil cache is valid and means every fetch goes to the registry.
type FetchCache struct {
	client  *platformredis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewFetchCache(client *platformredis.Client, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) *FetchCache {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchCache{client: client, ttl: ttl, metrics: m, logger: logger}
}

type cachedPayload struct {
	Payload         []byte               `json:"payload"`
	Format          models.PayloadFormat `json:"format"`
	SourceTimestamp time.Time            `json:"source_timestamp"`
}

// Get returns the cached payload for the pair. Cache failures count as
// misses; the registry remains reachable either way.
func (c *FetchCache) Get(ctx context.Context, source models.Source, lookupKey string) (models.RawPayload, bool) {
	if c == nil {
		return models.RawPayload{}, false
	}
	raw, err := c.client.Get(ctx, cacheKey(source, lookupKey)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.logger.WarnContext(ctx, "fetch cache read failed", "source", source, "error", err)
		}
		c.metrics.RecordCacheMiss(string(source))
		return models.RawPayload{}, false
	}
	var cached cachedPayload
	if err := json.Unmarshal(raw, &cached); err != nil {
		c.metrics.RecordCacheMiss(string(source))
		return models.RawPayload{}, false
	}
	c.metrics.RecordCacheHit(string(source))
	return models.RawPayload{
		Bytes:           cached.Payload,
		Format:          cached.Format,
		SourceTimestamp: cached.SourceTimestamp,
	}, true
}

// Put stores the payload for the TTL. Failures are logged, never fatal.
func (c *FetchCache) Put(ctx context.Context, source models.Source, lookupKey string, payload models.RawPayload) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(cachedPayload{
		Payload:         payload.Bytes,
		Format:          payload.Format,
		SourceTimestamp: payload.SourceTimestamp,
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(source, lookupKey), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "fetch cache write failed", "source", source, "error", err)
	}
}

func cacheKey(source models.Source, lookupKey string) string {
	return fetchKeyPrefix + string(source) + ":" + lookupKey
}
