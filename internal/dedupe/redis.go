package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "lithos:dedupe:"

// Redis dedupes across processes with SETNX + TTL.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedis builds a deduper; an empty prefix uses the package default.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Redis{client: client, ttl: ttl, prefix: prefix}, nil
}

func (d *Redis) Seen(ctx context.Context, id string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+id, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return !ok, nil
}

func (d *Redis) Forget(ctx context.Context, id string) error {
	if err := d.client.Del(ctx, d.prefix+id).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
