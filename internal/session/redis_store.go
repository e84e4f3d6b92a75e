package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one key per session and lets redis expire it.
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

func NewRedisStore(client redis.UniversalClient, prefix string, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, retention: retention}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + "session:" + TokenDigest(token)
}

func (s *RedisStore) Open(ctx context.Context, userID, token string) error {
	return s.client.Set(ctx, s.key(token), userID, s.retention).Err()
}

func (s *RedisStore) IsLive(ctx context.Context, token, userID string) (bool, error) {
	owner, err := s.client.Get(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return owner == userID, nil
}

func (s *RedisStore) Close(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.key(token)).Err()
}
