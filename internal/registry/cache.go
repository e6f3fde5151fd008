package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	platformredis "credentialwatch/internal/platform/redis"
)

// CachedLookup is a read-through Redis cache in front of a registry Lookup.
// Registry data changes rarely, so successful lookups are cached for a TTL;
// cache failures degrade to a live lookup and are logged, never surfaced.
// Searches are not cached: their parameter space is too wide to be worth it.
type CachedLookup struct {
	inner  Lookup
	redis  *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedLookup decorates inner with a Redis cache. Returns inner unchanged
// when redis is nil so wiring stays unconditional at the call site.
func NewCachedLookup(inner Lookup, redis *platformredis.Client, ttl time.Duration, logger *slog.Logger) Lookup {
	if redis == nil {
		return inner
	}
	return &CachedLookup{inner: inner, redis: redis, ttl: ttl, logger: logger}
}

func (c *CachedLookup) Lookup(ctx context.Context, npi string) (*Record, error) {
	key := cacheKey(npi)

	if cached, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var record Record
		if err := json.Unmarshal(cached, &record); err == nil {
			return &record, nil
		}
		// Corrupt entry; fall through to a live lookup which overwrites it.
	}

	record, err := c.inner.Lookup(ctx, npi)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(record); err == nil {
		if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "registry cache write failed",
				"npi", npi,
				"error", err.Error(),
			)
		}
	}
	return record, nil
}

func (c *CachedLookup) Search(ctx context.Context, req SearchRequest) ([]Record, error) {
	return c.inner.Search(ctx, req)
}

func cacheKey(npi string) string {
	return "registry:npi:" + npi
}
