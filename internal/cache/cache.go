// Package cache stores JSON-encoded values with a TTL and fans out events.
// Redis is used when configured; otherwise an in-process LRU stands in.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Get decodes the value stored under key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}
