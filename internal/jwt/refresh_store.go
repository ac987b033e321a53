package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrRefreshNotFound = errors.New("refresh token not found")

// RefreshStore keeps refresh tokens and the user they were issued to.
type RefreshStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

const refreshKeyPrefix = "sgi:refresh:"

type RedisRefreshStore struct {
	client *redis.Client
}

func NewRedisRefreshStore(client *redis.Client) *RedisRefreshStore {
	return &RedisRefreshStore{client: client}
}

func (s *RedisRefreshStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, refreshKeyPrefix+key, value, ttl).Err()
}

func (s *RedisRefreshStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, refreshKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrRefreshNotFound
	}
	return val, err
}

func (s *RedisRefreshStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, refreshKeyPrefix+key, ttl).Err()
}

func (s *RedisRefreshStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, refreshKeyPrefix+key).Err()
}
