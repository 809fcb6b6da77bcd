package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "enroll:attempt:"

// RedisStore keeps attempt notes in a Redis hash per attempt, with the
// attempt TTL enforced by key expiry.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed attempt store.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, attemptID, key, value string) error {
	rkey := redisKeyPrefix + attemptID
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, rkey, key, value)
	// Refresh only on first write so the attempt lifetime stays bounded.
	pipe.ExpireNX(ctx, rkey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put attempt note: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, attemptID, key string) (string, error) {
	value, err := s.client.HGet(ctx, redisKeyPrefix+attemptID, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("get attempt note: %w", err)
	}
	return value, nil
}

func (s *RedisStore) Remove(ctx context.Context, attemptID, key string) error {
	if err := s.client.HDel(ctx, redisKeyPrefix+attemptID, key).Err(); err != nil {
		return fmt.Errorf("remove attempt note: %w", err)
	}
	return nil
}

func (s *RedisStore) Destroy(ctx context.Context, attemptID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+attemptID).Err(); err != nil {
		return fmt.Errorf("destroy attempt: %w", err)
	}
	return nil
}
