// Package dedupe tracks submission idempotency keys so that a retried
// submission is acknowledged without applying its rating updates twice.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen submission ids to ensure at-most-one durable
// side effect per accepted submission.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it
	// if not. Returns true if id was already seen, false if it was newly
	// recorded. Thread-safe and atomic.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes a submission id from the seen set so a failed
	// submission can be retried. Only used when an id was recorded but
	// its transaction did not commit.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper implements Deduper with a map plus a FIFO ring of
// recorded ids. When maxSize is positive the oldest id is evicted to
// admit a new one; maxSize <= 0 disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string // insertion order, oldest at head
	head    int
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 100_000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.ring = make([]string, 0, d.maxSize)
	}
	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.maxSize > 0 {
		if len(d.seen) >= d.maxSize {
			d.evictOldest()
		}
		d.ring = append(d.ring, id)
	}
	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

// Unrecord implements Deduper. The ring keeps a stale slot for the
// removed id; evictOldest skips slots no longer present in the set.
func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; !ok {
		return
	}
	delete(d.seen, id)
	d.size.Add(-1)
}

// evictOldest drops the oldest recorded id still present in the set.
// Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	for d.head < len(d.ring) {
		id := d.ring[d.head]
		d.head++
		if _, ok := d.seen[id]; ok {
			delete(d.seen, id)
			d.size.Add(-1)
			break
		}
	}
	// Compact once the consumed prefix dominates the ring.
	if d.head > len(d.ring)/2 {
		d.ring = append(d.ring[:0], d.ring[d.head:]...)
		d.head = 0
	}
}

// Size returns the current number of recorded ids.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
