package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type ClientConfig struct {
	Addr     string
	Username string
	Password string
	PoolSize int // 0 means 10
}

// NewRedisClient connects and pings. The lock is the only user, so timeouts
// are kept short enough to fail a booking fast rather than stall it.
func NewRedisClient(ctx context.Context, cc ClientConfig) (*redis.Client, error) {
	rdb := redis.NewClient(clientOptions(cc))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cc.Addr, err)
	}

	return rdb, nil
}

func clientOptions(cc ClientConfig) *redis.Options {
	poolSize := cc.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	return &redis.Options{
		Addr:         cc.Addr,
		Username:     cc.Username,
		Password:     cc.Password,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     poolSize,
		MinIdleConns: 1,
	}
}

// Ping reports whether the server answers. It fits the readiness probe.
func Ping(client *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
