package notify

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/food-pantry/internal/config"
	"github.com/iliyamo/food-pantry/internal/inventory"
)

// CacheInvalidator drops every cached response under the cache prefix
// whenever the inventory changes.  It first bumps the cache generation,
// so a response rendered before the commit is never stored after it;
// GET /items and GET /logs therefore never serve data older than the
// last commit.
type CacheInvalidator struct {
	rdb    *redis.Client
	prefix string
	genKey string
}

// NewCacheInvalidator returns an invalidator for the keys of cfg.
func NewCacheInvalidator(rdb *redis.Client, cfg config.CacheConfig) *CacheInvalidator {
	return &CacheInvalidator{rdb: rdb, prefix: cfg.Prefix, genKey: cfg.GenerationKey()}
}

// Notify implements inventory.Notifier.
func (c *CacheInvalidator) Notify(ctx context.Context, _ inventory.Event) error {
	if err := c.rdb.Incr(ctx, c.genKey).Err(); err != nil {
		return err
	}
	iter := c.rdb.Scan(ctx, 0, c.prefix+":*", 200).Iterator()
	keys := make([]string, 0, 64)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == cap(keys) {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.rdb.Del(ctx, keys...).Err()
	}
	return nil
}
