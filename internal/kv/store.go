// Package kv defines the expiring key-value store that all short-lived
// conversational state (sessions, partial transactions, rate-limit counters,
// debounce markers) is multiplexed onto. Each subsystem owns a disjoint key
// prefix; none reads another's keys.
package kv

import (
	"context"
	"time"
)

// Store is the contract for a shared key-value store with per-key expiration.
// All operations are remote calls that may block; implementations must be safe
// for concurrent use. A missing key is not an error: Get reports it via the
// found flag.
type Store interface {
	// Get returns the value for key, or found=false if the key is absent
	// or expired.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set writes key=value with the given TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// Incr atomically increments the integer value at key, creating it at 1
	// if absent, and returns the new value. The key's TTL is unchanged.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets the TTL of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// SetNX writes key=value with a TTL only if the key is absent, and
	// reports whether the write happened. This is the store's only
	// mutual-exclusion primitive.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Keys returns all unexpired keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any underlying connections.
	Close() error
}
