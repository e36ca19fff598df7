package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rl:verify:"

// RedisStore implements Store with a Redis sorted set per key, scored by
// request time. This is the production implementation for distributed
// deployments where all instances must share one window.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := time.Now()
	cutoff := now.Add(-window)
	rkey := redisKeyPrefix + key
	member := uuid.NewString()

	// Trim, add, count and refresh expiry atomically. Adding before counting
	// means concurrent callers can only under-admit, never over-admit.
	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "0", fmt.Sprintf("%d", cutoff.UnixNano()))
	pipe.ZAdd(ctx, rkey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, rkey)
	pipe.Expire(ctx, rkey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit window update: %w", err)
	}

	count := int(countCmd.Val())
	if count > limit {
		// Over the limit: this request does not consume window capacity.
		if err := s.client.ZRem(ctx, rkey, member).Err(); err != nil {
			return nil, fmt.Errorf("rate limit window trim: %w", err)
		}
		return &Result{
			Allowed:   false,
			Remaining: 0,
			Limit:     limit,
			ResetAt:   now.Add(window),
		}, nil
	}

	return &Result{
		Allowed:   true,
		Remaining: limit - count,
		Limit:     limit,
		ResetAt:   now.Add(window),
	}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKeyPrefix+key).Err()
}
