// Package cache provides the key/value cache the listing pages read through.
// Values are stored as JSON so the same snapshot can live in Redis or in process.
package cache

import (
	"context"
	"time"
)

// Cache is the minimal contract the services depend on.
// Get reports whether the key was present and, if so, decodes it into dst.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Clear(ctx context.Context) error
}
