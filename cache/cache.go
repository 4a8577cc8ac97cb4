// Package cache provides the advisory caches shared by the retrieval
// adapters. Losing an entry only costs latency; callers must never depend on
// a hit for correctness.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Cache is a bounded, TTL-expiring byte cache
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value; ttl <= 0 uses the implementation default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Purge(ctx context.Context)
}

// Key derives a fixed-length cache key from its parts
func Key(namespace string, parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return namespace + ":" + hex.EncodeToString(h[:])
}

// GetJSON decodes a cached JSON value into v. A nil cache is always a miss.
func GetJSON(ctx context.Context, c Cache, key string, v any) bool {
	if c == nil {
		return false
	}
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// SetJSON encodes v and stores it. Encoding failures are dropped silently.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, raw, ttl)
}
