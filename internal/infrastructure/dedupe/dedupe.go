package dedupe

import (
	"context"
	"fmt"
	"time"

	"shopify-embedded-app/internal/ports"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL covers Shopify's retry window for a failed delivery (48 hours)
const DefaultTTL = 48 * time.Hour

var (
	_ ports.WebhookDeduper = (*RedisDeduper)(nil)
	_ ports.WebhookDeduper = (*MemoryDeduper)(nil)
)

// RedisDeduper claims webhook ids with SET NX so every replica agrees on the first delivery
type RedisDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper keyed under "webhook:"
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, prefix: "webhook:", ttl: ttl}
}

func (d *RedisDeduper) Claim(ctx context.Context, id string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+id, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim webhook %s: %w", id, err)
	}
	return ok, nil
}

func (d *RedisDeduper) Release(ctx context.Context, id string) error {
	if err := d.client.Del(ctx, d.prefix+id).Err(); err != nil {
		return fmt.Errorf("failed to release webhook %s: %w", id, err)
	}
	return nil
}

// MemoryDeduper is the single-process fallback
type MemoryDeduper struct {
	seen *cache.Cache
}

// NewMemoryDeduper creates an in-memory deduper
func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{seen: cache.New(ttl, ttl/4)}
}

func (d *MemoryDeduper) Claim(_ context.Context, id string) (bool, error) {
	// Add fails when the key is already present
	return d.seen.Add(id, struct{}{}, cache.DefaultExpiration) == nil, nil
}

func (d *MemoryDeduper) Release(_ context.Context, id string) error {
	d.seen.Delete(id)
	return nil
}
