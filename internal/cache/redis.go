// internal/cache/redis.go - Redis-backed tile cache
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"
)

// Redis shares rendered tiles between server instances
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to addr and verifies the connection with a ping
func NewRedis(ctx context.Context, addr string, db int, ttl time.Duration) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		PoolSize:     32,
		MinIdleConns: 2,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return val, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, val []byte) error {
	if err := c.rdb.Set(ctx, key, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

func (c *Redis) Close() error { return c.rdb.Close() }
