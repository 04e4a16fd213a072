package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig addresses the Redis instance that stores revoked token IDs.
type RedisConfig struct {
	Addr     string
	Password string

	// DB selects a logical database so the denylist can share an instance.
	DB int

	// DialTimeout also bounds the startup PING. Defaults to 3s.
	DialTimeout time.Duration
}

const defaultRedisDialTimeout = 3 * time.Second

func (c RedisConfig) options() (*redis.Options, error) {
	if c.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if c.DB < 0 {
		return nil, fmt.Errorf("redis db must not be negative, got %d", c.DB)
	}
	dial := c.DialTimeout
	if dial <= 0 {
		dial = defaultRedisDialTimeout
	}
	return &redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: dial,
	}, nil
}

// OpenRedis connects and verifies the server answers PING before returning.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}
