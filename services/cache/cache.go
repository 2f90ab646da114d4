package cache

import (
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key has no value. Callers use it
// to tell an ordinary miss from a broken cache backend.
var ErrNotFound = errors.New("cache: key not found")

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
