// internal/cache/cache.go - Rendered tile cache interface and keys
package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/valpere/tile_to_png/internal/config"
)

// Cache types accepted in configuration
const (
	TypeNone  = "none"
	TypeLRU   = "lru"
	TypeRedis = "redis"
)

// Cache is a byte store keyed by Key. A miss is reported as ok=false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	Close() error
}

// Key builds the cache key of a rendered tile. variant describes every option that changes
// the output bytes (size, background, layers, format) and is folded into a hash.
func Key(prefix string, z, x, y int, variant string) string {
	sum := xxhash.Sum64String(strings.TrimSpace(variant))
	if prefix == "" {
		return fmt.Sprintf("%d/%d/%d:v=%016x", z, x, y, sum)
	}
	return fmt.Sprintf("%s:%d/%d/%d:v=%016x", prefix, z, x, y, sum)
}

// New creates the cache selected by cfg
func New(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	switch strings.ToLower(cfg.Type) {
	case "", TypeNone:
		return Nop{}, nil
	case TypeLRU:
		c, err := NewLRU(cfg.Size, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return c, nil
	case TypeRedis:
		c, err := NewRedis(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// Nop never stores anything
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte) error         { return nil }
func (Nop) Close() error                                      { return nil }
