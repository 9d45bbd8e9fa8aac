package kvstore

import (
	"context"

	redisc "github.com/smarttraffic/core/internal/pkg/redis"
)

// redisStore backs the list store with Redis string values.
type redisStore struct {
	rc *redisc.Client
}

// NewRedis returns a Store backed by the shared Redis client.
func NewRedis(rc *redisc.Client) Store {
	return &redisStore{rc: rc}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	return s.rc.Get(ctx, key)
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	return s.rc.Set(ctx, key, value, 0)
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.rc.Del(ctx, key)
}
