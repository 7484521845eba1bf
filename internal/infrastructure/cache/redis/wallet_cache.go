// Package redis implements the wallet snapshot cache.
//
// The cache is read-through and last-write-wins. It is never authoritative:
// the projector refreshes it after commit and queries fall through to the
// read store on a miss, so a stale or lost entry costs latency, not
// correctness.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/velopay/walletd/internal/application/ports"
)

const keyPrefix = "wallet:snapshot:"

// WalletCache stores wallet snapshots in Redis with a TTL.
type WalletCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.WalletCache = (*WalletCache)(nil)

// NewWalletCache creates a cache with the given TTL.
func NewWalletCache(client *redis.Client, ttl time.Duration) *WalletCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &WalletCache{client: client, ttl: ttl}
}

// Get returns the cached snapshot, or (nil, nil) on a miss. A corrupt entry
// is treated as a miss and evicted.
func (c *WalletCache) Get(ctx context.Context, walletID uuid.UUID) (*ports.WalletSnapshot, error) {
	data, err := c.client.Get(ctx, keyPrefix+walletID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached wallet: %w", err)
	}

	var snapshot ports.WalletSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		_ = c.client.Del(ctx, keyPrefix+walletID.String()).Err()
		return nil, nil
	}
	return &snapshot, nil
}

// Set stores the snapshot under the configured TTL.
func (c *WalletCache) Set(ctx context.Context, snapshot ports.WalletSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode wallet snapshot: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+snapshot.ID.String(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache wallet snapshot: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot.
func (c *WalletCache) Invalidate(ctx context.Context, walletID uuid.UUID) error {
	if err := c.client.Del(ctx, keyPrefix+walletID.String()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached wallet: %w", err)
	}
	return nil
}
