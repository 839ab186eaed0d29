package ports

import (
	"context"
	"time"
)

type Cache interface {
	// SetIfAbsent stores key with ttl and reports whether it was newly set.
	SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}
