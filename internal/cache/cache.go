package cache

import (
	"context"
	"errors"
	"time"
)

// NoExpiry pins a key without a TTL. A zero ttl on Set means "use the
// backend's default TTL", so durable values must pass this instead.
const NoExpiry = time.Duration(-1)

var (
	ErrNotFound     = errors.New("key not found in cache")
	ErrInvalidValue = errors.New("invalid value for cache")
	ErrClosed       = errors.New("cache is closed")
)

// Cache backs both the mailbox candidate-listing cache and the persisted
// classifier model. Values must be *string, []byte-compatible, or implement
// encoding.BinaryMarshaler/Unmarshaler.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	Get(ctx context.Context, key string, value interface{}) error

	Delete(ctx context.Context, key string) error

	Close() error
}

type Options struct {
	DefaultTTL time.Duration

	RedisURL string

	RedisPassword string

	RedisDB int
}

func DefaultOptions() Options {
	return Options{
		DefaultTTL: time.Hour,
	}
}
