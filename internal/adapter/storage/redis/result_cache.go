package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"card-payment-gateway/internal/core/domain"
	"card-payment-gateway/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// ResultCache is a Redis read-through cache of finalized authorization
// results. It is an optimization in front of the idempotency ledger, never a
// substitute for it: a miss here still goes through the ledger's claim.
type ResultCache struct {
	client *goredis.Client
	prefix string
}

var _ ports.ResultCache = (*ResultCache)(nil)

// NewResultCache creates a Redis-backed result cache.
func NewResultCache(client *goredis.Client) *ResultCache {
	return &ResultCache{
		client: client,
		prefix: "authresult:",
	}
}

// Get retrieves a cached result by composite idempotency key.
// Returns nil, nil when the key is not cached.
func (c *ResultCache) Get(ctx context.Context, key string) (*domain.CreatePaymentResult, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis result get: %w", err)
	}

	var result domain.CreatePaymentResult
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, fmt.Errorf("redis result decode: %w", err)
	}
	return &result, nil
}

// Set stores a finalized result with TTL.
func (c *ResultCache) Set(ctx context.Context, key string, result domain.CreatePaymentResult, ttl time.Duration) error {
	val, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("redis result encode: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis result set: %w", err)
	}
	return nil
}
