package memory

import (
	"context"
	"sync"
	"time"
)

// sweepEvery controls how often expired stamps are dropped
const sweepEvery = 1024

// CooldownStore keeps suppression stamps in process
type CooldownStore struct {
	mu       sync.Mutex
	stamps   map[string]time.Time
	reserves int
	longest  time.Duration
}

// NewCooldownStore creates an empty cooldown store
func NewCooldownStore() *CooldownStore {
	return &CooldownStore{stamps: make(map[string]time.Time)}
}

// Reserve stamps key with at unless it fired within window
func (c *CooldownStore) Reserve(ctx context.Context, key string, at time.Time, window time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if window > c.longest {
		c.longest = window
	}
	c.reserves++
	if c.reserves%sweepEvery == 0 {
		c.sweep(at)
	}

	if last, ok := c.stamps[key]; ok && at.Sub(last) < window {
		return false, nil
	}
	c.stamps[key] = at
	return true, nil
}

// Release drops the stamp of key if it is still at
func (c *CooldownStore) Release(ctx context.Context, key string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.stamps[key]; ok && last.Equal(at) {
		delete(c.stamps, key)
	}
	return nil
}

// LastFired returns the stamp of key
func (c *CooldownStore) LastFired(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.stamps[key]
	return t, ok
}

func (c *CooldownStore) sweep(now time.Time) {
	for k, t := range c.stamps {
		if now.Sub(t) >= c.longest {
			delete(c.stamps, k)
		}
	}
}
