package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pratik-mahalle/watchpost/internal/config"
)

// releaseScript deletes the key only while it still holds our stamp
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewClient creates a Redis client from configuration
func NewClient(cfg config.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// CooldownStore shares suppression stamps between instances through Redis.
// A stamp is a key that expires after the cooldown window.
type CooldownStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewCooldownStore creates a Redis backed cooldown store
func NewCooldownStore(client goredis.UniversalClient, prefix string) *CooldownStore {
	return &CooldownStore{client: client, prefix: prefix}
}

// Reserve sets the stamp with NX so only one caller wins per window
func (c *CooldownStore) Reserve(ctx context.Context, key string, at time.Time, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	ok, err := c.client.SetNX(ctx, c.prefix+key, stamp(at), window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve cooldown %s: %w", key, err)
	}
	return ok, nil
}

// Release removes the stamp if it still belongs to at
func (c *CooldownStore) Release(ctx context.Context, key string, at time.Time) error {
	if err := releaseScript.Run(ctx, c.client, []string{c.prefix + key}, stamp(at)).Err(); err != nil && err != goredis.Nil {
		return fmt.Errorf("failed to release cooldown %s: %w", key, err)
	}
	return nil
}

// Ping checks the connection
func (c *CooldownStore) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func stamp(at time.Time) string {
	return strconv.FormatInt(at.UnixNano(), 10)
}
