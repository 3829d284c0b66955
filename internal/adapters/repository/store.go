// Package repository holds the live exam schedule.
package repository

import (
	"context"
	"sort"
	"time"

	"github.com/okian/exambot/internal/domain/course"
	"github.com/okian/exambot/internal/domain/model"
)

// Reader provides read access to the current schedule generation.
type Reader interface {
	// Get returns the record for code or ErrNotFound.
	Get(ctx context.Context, code course.Code) (model.ExamRecord, error)
	// Codes returns every scheduled code in ascending order.
	Codes(ctx context.Context) []course.Code
	// Count returns the number of scheduled courses.
	Count(ctx context.Context) int
	// Snapshot returns the current immutable generation. Callers that need
	// several consistent reads should take one snapshot and read from it.
	Snapshot(ctx context.Context) *Snapshot
}

// Store is a Reader whose contents can be replaced wholesale.
type Store interface {
	Reader
	// Replace publishes records as the new generation. The store takes
	// ownership of the map; callers must not modify it afterwards.
	Replace(ctx context.Context, records map[course.Code]model.ExamRecord) *Snapshot
}

// Snapshot is one immutable schedule generation.
type Snapshot struct {
	records    map[course.Code]model.ExamRecord
	codes      []course.Code
	Generation uint64
	LoadedAt   time.Time
}

func newSnapshot(records map[course.Code]model.ExamRecord, generation uint64, at time.Time) *Snapshot {
	if records == nil {
		records = make(map[course.Code]model.ExamRecord)
	}
	codes := make([]course.Code, 0, len(records))
	for c := range records {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return &Snapshot{records: records, codes: codes, Generation: generation, LoadedAt: at}
}

// Get returns the record for code.
func (s *Snapshot) Get(code course.Code) (model.ExamRecord, bool) {
	r, ok := s.records[code]
	return r, ok
}

// Codes returns the codes in ascending order. The slice is shared; do not modify.
func (s *Snapshot) Codes() []course.Code { return s.codes }

// Len returns the number of courses.
func (s *Snapshot) Len() int { return len(s.records) }
