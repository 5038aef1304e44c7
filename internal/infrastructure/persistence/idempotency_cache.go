package persistence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/domain/ingest"
)

// idempotencyKeyTTL bounds cache growth; the store lookup remains the
// source of truth after expiry.
const idempotencyKeyTTL = 30 * 24 * time.Hour

// RedisIdempotencyCache implements ingest.IdempotencyCache over Redis as a
// fast path in front of the store lookup.
type RedisIdempotencyCache struct {
	client *redis.Client
}

// Interface assertion
var _ ingest.IdempotencyCache = (*RedisIdempotencyCache)(nil)

// NewRedisIdempotencyCache creates a new RedisIdempotencyCache
func NewRedisIdempotencyCache(client *redis.Client) *RedisIdempotencyCache {
	return &RedisIdempotencyCache{client: client}
}

// Seen reports whether the external order id was remembered for the channel
func (c *RedisIdempotencyCache) Seen(ctx context.Context, ch channel.Code, externalOrderID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(ch, externalOrderID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Remember records a committed external order id
func (c *RedisIdempotencyCache) Remember(ctx context.Context, ch channel.Code, externalOrderID string) error {
	return c.client.Set(ctx, c.key(ch, externalOrderID), 1, idempotencyKeyTTL).Err()
}

func (c *RedisIdempotencyCache) key(ch channel.Code, externalOrderID string) string {
	return "ingest:order:" + ch.String() + ":" + externalOrderID
}
