package port

import (
	"context"
	"errors"
	"time"
)

// Cache is the key-value contract used for short-lived delivery markers.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns ErrMiss when key is absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value with ttl; ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes keys and reports how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// ErrMiss signals an absent key, distinct from transport failures.
var ErrMiss = errors.New("cache: miss")
