// README: Redis-backed snapshot cache in front of the Postgres store.
package ratetable

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const snapshotKey = "ratetable:snapshot"

// CacheRecorder receives hit/miss/error outcomes.
type CacheRecorder interface {
	RateTableCache(result string)
}

// CachedSource keeps one serialized snapshot in Redis. Entries live until ttl expires
// or Invalidate is called after an import.
type CachedSource struct {
	redis   *redis.Client
	next    Source
	ttl     time.Duration
	metrics CacheRecorder
	logger  *zap.Logger
}

func NewCachedSource(client *redis.Client, next Source, ttl time.Duration, metrics CacheRecorder, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{redis: client, next: next, ttl: ttl, metrics: metrics, logger: logger}
}

func (c *CachedSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	raw, err := c.redis.Get(ctx, snapshotKey).Bytes()
	switch {
	case err == nil:
		var snap Snapshot
		uerr := json.Unmarshal(raw, &snap)
		if uerr == nil {
			c.record("hit")
			return &snap, nil
		}
		c.logger.Warn("discarding unreadable cached rate tables", zap.Error(uerr))
	case errors.Is(err, redis.Nil):
	default:
		c.record("error")
		c.logger.Warn("rate-table cache unavailable, reading store", zap.Error(err))
		return c.next.Snapshot(ctx)
	}

	c.record("miss")
	snap, err := c.next.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	if err := c.redis.Set(ctx, snapshotKey, b, c.ttl).Err(); err != nil {
		c.logger.Warn("caching rate tables failed", zap.Error(err), zap.String("version", snap.Version))
	}
	return snap, nil
}

// Invalidate drops the cached snapshot so the next read goes to the store.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	return c.redis.Del(ctx, snapshotKey).Err()
}

func (c *CachedSource) record(result string) {
	if c.metrics != nil {
		c.metrics.RateTableCache(result)
	}
}
