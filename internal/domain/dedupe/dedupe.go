// Package dedupe coalesces background jobs that are already pending.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 1024

// Deduper tracks keys of pending work so duplicates can be dropped.
type Deduper interface {
	// SeenAndRecord atomically checks if key is pending and records it if not.
	// Returns true if key was already pending. Empty keys are never recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord releases key, typically when the worker starts on the job or
	// the enqueue that recorded it failed.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type inMemoryDeduper struct {
	mu      sync.Mutex
	pending map[string]struct{}
	maxSize int // 0 or negative = unbounded
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.pending = make(map[string]struct{})
	return d
}

// SeenAndRecord implements Deduper. When the tracker is full new keys pass
// through unrecorded rather than being dropped.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.pending[key]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.pending) >= d.maxSize {
		return false
	}
	d.pending[key] = struct{}{}
	d.size.Add(1)
	return false
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(ctx context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.pending[key]; ok {
		delete(d.pending, key)
		d.size.Add(-1)
	}
}

// Size returns the number of pending keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
