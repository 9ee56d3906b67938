package store

import (
	"context"
	"time"
)

// Store is the shared key-value contract used by the catalog cache, the PIN
// attempt tracker and the rate limiter. Values are opaque bytes; a zero or
// negative TTL means the entry never expires on its own.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
