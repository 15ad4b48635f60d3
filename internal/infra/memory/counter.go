package memory

import (
	"context"
	"sync"
)

// Counter is an in-process atomic sequence. Suitable for a single instance;
// multi-instance deployments use the Redis counter instead.
type Counter struct {
	mu     sync.Mutex
	value  int64
	seeded bool
}

func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) Next(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seeded = true
	c.value++
	return c.value, nil
}

func (c *Counter) Seed(_ context.Context, n int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seeded {
		return nil
	}
	c.value = n
	c.seeded = true
	return nil
}
