package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gctu/certificate-registry/internal/core/ports"
)

const verdictTTL = time.Hour

// VerdictCache caches resolved verification results in Redis.
// Only terminal verdicts are stored by the caller; revocation of an expired
// certificate is the one transition that can change a cached entry, and the
// revocation path invalidates it explicitly.
// Key format: verdict:<fingerprint>
type VerdictCache struct {
	client *redis.Client
}

// NewVerdictCache creates a VerdictCache wrapping the given Redis client.
func NewVerdictCache(client *redis.Client) *VerdictCache {
	return &VerdictCache{client: client}
}

// Get returns the cached result for the fingerprint, or (nil, nil) on a miss.
func (c *VerdictCache) Get(ctx context.Context, hash string) (*ports.VerificationResult, error) {
	raw, err := c.client.Get(ctx, c.key(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("verdict cache get: %w", err)
	}

	var result ports.VerificationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("verdict cache decode: %w", err)
	}
	return &result, nil
}

// Set stores the result under the fingerprint (expires after verdictTTL).
func (c *VerdictCache) Set(ctx context.Context, hash string, result *ports.VerificationResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("verdict cache encode: %w", err)
	}
	return c.client.Set(ctx, c.key(hash), raw, verdictTTL).Err()
}

// Invalidate drops the cached entry for the fingerprint.
func (c *VerdictCache) Invalidate(ctx context.Context, hash string) error {
	return c.client.Del(ctx, c.key(hash)).Err()
}

func (c *VerdictCache) key(hash string) string {
	return "verdict:" + hash
}
