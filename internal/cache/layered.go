package cache

import (
	"errors"
	"time"
)

// LayeredCache reads through a process-local cache in front of a persistent
// one. Token sequences found only on disk are copied into memory for promoteTTL.
type LayeredCache struct {
	front      Cache
	back       Cache
	promoteTTL time.Duration
}

// NewLayeredCache layers front over back. Promoted entries live for
// promoteTTL in front; a non-positive promoteTTL keeps them until deleted.
func NewLayeredCache(front, back Cache, promoteTTL time.Duration) *LayeredCache {
	if promoteTTL < 0 {
		promoteTTL = 0
	}
	return &LayeredCache{front: front, back: back, promoteTTL: promoteTTL}
}

// Get looks in front, then back
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, ok := c.front.Get(key); ok {
		return val, true
	}
	val, ok := c.back.Get(key)
	if !ok {
		return nil, false
	}
	_ = c.front.Set(key, val, c.promote())
	return val, true
}

func (c *LayeredCache) promote() time.Duration {
	if c.promoteTTL == 0 {
		return neverExpire
	}
	return c.promoteTTL
}

// Set writes through to both layers
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.front.Set(key, value, ttl); err != nil {
		return err
	}
	return c.back.Set(key, value, ttl)
}

// Delete removes key from both layers
func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.front.Delete(key), c.back.Delete(key))
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	return errors.Join(c.front.Clear(), c.back.Clear())
}
