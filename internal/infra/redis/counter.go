package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Counter hands out registration sequence numbers via INCR, so concurrent
// registrations cannot observe the same position even across instances.
type Counter struct {
	client *redis.Client
	key    string
}

func NewCounter(client *redis.Client, key string) *Counter {
	return &Counter{client: client, key: key}
}

func (c *Counter) Next(ctx context.Context) (int64, error) {
	return c.client.Incr(ctx, c.key).Result()
}

// Seed sets the sequence to n unless the counter already exists, so a restart
// never rewinds positions already handed out.
func (c *Counter) Seed(ctx context.Context, n int64) error {
	return c.client.SetNX(ctx, c.key, n, 0).Err()
}
