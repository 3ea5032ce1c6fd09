// Package cache defines the response cache used in front of the storefront API.
package cache

import (
	"context"
	"time"
)

// Interface is a byte-value cache with per-entry TTL. Get reports a miss with
// ok=false and a nil error.
type Interface interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Purger drops every entry whose key starts with prefix and reports how
// many were removed.
type Purger interface {
	PurgePrefix(ctx context.Context, prefix string) (int, error)
}

// Generational stores count purges. A fill whose source was read under an
// older generation is dropped by SetIfGeneration, so a purge that lands while
// a fetch is in flight cannot be undone by that fetch's write.
type Generational interface {
	Generation(ctx context.Context) (uint64, error)
	// SetIfGeneration stores val only if no purge ran since gen was read.
	SetIfGeneration(ctx context.Context, key string, val []byte, ttl time.Duration, gen uint64) (bool, error)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) PurgePrefix(context.Context, string) (int, error)         { return 0, nil }
