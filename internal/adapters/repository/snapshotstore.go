package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/exambot/internal/domain/course"
	"github.com/okian/exambot/internal/domain/model"
	"github.com/okian/exambot/pkg/metrics"
)

// SnapshotStore is an in-memory Store. Readers load an atomic pointer to an
// immutable Snapshot, so a concurrent Replace is observed either fully or
// not at all.
type SnapshotStore struct {
	// serializes writers so generations increase monotonically
	mu       sync.Mutex
	snapshot atomic.Pointer[Snapshot]
	now      func() time.Time
}

// NewSnapshotStore returns an empty store at generation zero.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot.Store(newSnapshot(nil, 0, time.Time{}))
	return s
}

// Replace implements Store.
func (s *SnapshotStore) Replace(ctx context.Context, records map[course.Code]model.ExamRecord) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := newSnapshot(records, s.snapshot.Load().Generation+1, s.now())
	s.snapshot.Store(next)

	metrics.UpdateSchedule(next.Len(), next.Generation)
	return next
}

// Get implements Reader.
func (s *SnapshotStore) Get(ctx context.Context, code course.Code) (model.ExamRecord, error) {
	rec, ok := s.snapshot.Load().Get(code)
	if !ok {
		return model.ExamRecord{}, ErrNotFound
	}
	return rec, nil
}

// Codes implements Reader.
func (s *SnapshotStore) Codes(ctx context.Context) []course.Code {
	return s.snapshot.Load().Codes()
}

// Count implements Reader.
func (s *SnapshotStore) Count(ctx context.Context) int {
	return s.snapshot.Load().Len()
}

// Snapshot implements Reader.
func (s *SnapshotStore) Snapshot(ctx context.Context) *Snapshot {
	return s.snapshot.Load()
}
