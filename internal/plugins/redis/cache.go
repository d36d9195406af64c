package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// PreviewCache stores the rendered contacts-with-preview view per owner.
// The TTL bounds staleness; writers invalidate on send and read-receipt.
type PreviewCache struct {
	rdb *redis.Client
}

func NewPreviewCache(rdb *redis.Client) *PreviewCache {
	return &PreviewCache{rdb: rdb}
}

func (c *PreviewCache) key(owner string) string {
	return "inbox:" + owner
}

func (c *PreviewCache) Get(ctx context.Context, owner string) ([]byte, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(owner)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (c *PreviewCache) Set(ctx context.Context, owner string, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(owner), payload, ttl).Err()
}

func (c *PreviewCache) Invalidate(ctx context.Context, owners ...string) error {
	if len(owners) == 0 {
		return nil
	}
	keys := make([]string, len(owners))
	for i, o := range owners {
		keys[i] = c.key(o)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
