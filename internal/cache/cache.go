// Package cache provides the key/value store capability used to cache
// provider snapshots and raw resource records.
package cache

import (
	"context"
	"time"
)

// Store is a key/value cache with set-with-expiry semantics. Values are
// serialized as JSON so implementations can share a wire shape. A zero
// expiresAt stores the value with the backend's default retention.
type Store interface {
	// Get loads the value stored under key into dest, reporting whether a
	// live entry was found.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key until the absolute expiry time elapses.
	Set(ctx context.Context, key string, value any, expiresAt time.Time) error
}
