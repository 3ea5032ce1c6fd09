package invalidation

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Dedupe remembers the last applied revision per product so redelivered or
// reordered events do not purge twice.
type Dedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, uint64]
}

func NewDedupe(size int) *Dedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, uint64](size)
	return &Dedupe{lru: c}
}

// Stale reports whether a revision at or above ev's was already applied for
// its product. Events without a revision are never stale.
func (d *Dedupe) Stale(ev Event) bool {
	if ev.Revision == 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lru.Get(ev.ProductID)
	return ok && ev.Revision <= last
}

// Applied records ev's revision once it has taken effect.
func (d *Dedupe) Applied(ev Event) {
	if ev.Revision == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(ev.ProductID); ok && last >= ev.Revision {
		return
	}
	d.lru.Add(ev.ProductID, ev.Revision)
}
