// Package cache provides the small TTL cache used for translated model
// listings, with in-memory and redis backends.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent or expired. Callers treat a
// miss and an expired entry identically.
var ErrMiss = errors.New("cache: key not found")

// CacheService defines the interface for a cache backend.
type CacheService interface {
	// Get retrieves a value from the cache.
	// The implementation unmarshals the data into the 'dest' pointer.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores a value in the cache with a TTL.
	// The implementation marshals the value.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error
}
