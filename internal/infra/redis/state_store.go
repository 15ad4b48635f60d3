package redis

import (
	"context"
	"errors"

	"bookfair-service/internal/docstore"
	"github.com/redis/go-redis/v9"
)

// StateStore persists client-state blobs (cart, cached user) in Redis.
// Keys carry no expiry: the stored state survives until explicitly cleared.
type StateStore struct {
	client *redis.Client
}

func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

func (s *StateStore) Load(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *StateStore) Save(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

func (s *StateStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *StateStore) key(key string) string {
	return "state:" + key
}
