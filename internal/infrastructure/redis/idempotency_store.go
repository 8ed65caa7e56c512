package redisstore

import (
	"context"
	"time"

	"userprofile-service/internal/application"

	"github.com/redis/go-redis/v9"
)

var _ application.IdempotencyStore = (*Store)(nil)

// Store keeps idempotency keys in Redis with a TTL.
type Store struct {
	Client redis.UniversalClient
	TTL    time.Duration
}

func New(client redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{Client: client, TTL: ttl}
}

func (s *Store) TryReserve(ctx context.Context, key string) (bool, error) {
	return s.Client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), s.TTL).Result()
}

// Release forgets key so the request can be retried.
func (s *Store) Release(ctx context.Context, key string) error {
	return s.Client.Del(ctx, key).Err()
}
