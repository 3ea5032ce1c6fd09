// Package memory is an in-process LRU response cache.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/observability"
)

type entry struct {
	val     []byte
	expires time.Time
}

type Store struct {
	lru *lru.Cache[string, entry]
	now func() time.Time // for tests

	// mu orders purges against conditional fills.
	mu  sync.Mutex
	gen uint64
}

func New(size int) (*Store, error) {
	if size <= 0 {
		size = 512
	}
	c, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("memory cache: %w", err)
	}
	return &Store{lru: c, now: time.Now}, nil
}

// Get returns a copy of the stored value. Expired entries are removed on read.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	start := time.Now()
	defer func() { observability.ObserveCacheOp("get", nil, time.Since(start).Seconds()) }()

	e, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		s.lru.Remove(key)
		return nil, false, nil
	}
	return append([]byte(nil), e.val...), true, nil
}

// Set stores a copy of val. A ttl <= 0 never expires.
func (s *Store) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	s.lru.Add(key, s.entry(val, ttl))
	observability.ObserveCacheOp("set", nil, time.Since(start).Seconds())
	return nil
}

func (s *Store) entry(val []byte, ttl time.Duration) entry {
	e := entry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	return e
}

func (s *Store) Generation(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen, nil
}

func (s *Store) SetIfGeneration(ctx context.Context, key string, val []byte, ttl time.Duration, gen uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		observability.ObserveCacheOp("set_stale", nil, time.Since(start).Seconds())
		return false, nil
	}
	s.lru.Add(key, s.entry(val, ttl))
	observability.ObserveCacheOp("set", nil, time.Since(start).Seconds())
	return true, nil
}

// PurgePrefix advances the generation before removing keys.
func (s *Store) PurgePrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	n := 0
	for _, k := range s.lru.Keys() {
		if strings.HasPrefix(k, prefix) && s.lru.Remove(k) {
			n++
		}
	}
	observability.ObserveCacheOp("purge", nil, time.Since(start).Seconds())
	return n, nil
}

func (s *Store) Len() int { return s.lru.Len() }
