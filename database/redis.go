package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	revokedPrefix   = "revoked:"
	rateLimitPrefix = "ratelimit:"
)

type RedisClient struct {
	client *redis.Client
}

func GetRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewRedisClient(client), nil
}

func NewRedisClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

// RevokeToken denylists a session token id until its natural expiry.
func (r *RedisClient) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedPrefix+jti, "1", ttl).Err()
}

func (r *RedisClient) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Allow counts a hit against key in a fixed window. It returns false with
// the remaining window once limit is exceeded. The counter and its expiry are
// written in one MULTI so a key can never be left without a TTL.
func (r *RedisClient) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if limit <= 0 {
		return true, 0, nil
	}
	k := rateLimitPrefix + key

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, window)
		ttl = pipe.TTL(ctx, k)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, 0, fmt.Errorf("rate limit incr: %w", err)
	}
	if incr.Val() <= int64(limit) {
		return true, 0, nil
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return false, remaining, nil
}
