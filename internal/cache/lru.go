// internal/cache/lru.go - In-process LRU tile cache
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRU keeps the most recently used tiles in memory
type LRU struct {
	lru *expirable.LRU[string, []byte]
}

// NewLRU creates an in-memory cache of at most size entries. A zero ttl keeps entries
// until they are evicted.
func NewLRU(size int, ttl time.Duration) (*LRU, error) {
	if size <= 0 {
		return nil, fmt.Errorf("lru cache size must be positive, got %d", size)
	}
	return &LRU{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}, nil
}

func (c *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.lru.Get(key)
	return v, ok, nil
}

func (c *LRU) Set(_ context.Context, key string, val []byte) error {
	c.lru.Add(key, val)
	return nil
}

// Len returns the number of cached tiles
func (c *LRU) Len() int { return c.lru.Len() }

func (c *LRU) Close() error {
	c.lru.Purge()
	return nil
}
