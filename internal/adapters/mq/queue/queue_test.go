package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/exambot/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	job := model.Job{ID: "job1", Kind: model.JobRefresh, Trigger: "test"}
	if !q.Enqueue(ctx, job) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != "job1" || got.Kind != model.JobRefresh {
		t.Errorf("expected job1/refresh, got %v/%v", got.ID, got.Kind)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if !q.Enqueue(ctx, model.Job{ID: fmt.Sprintf("job%d", i), Kind: model.JobReload}) {
			t.Errorf("expected enqueue %d to succeed", i)
		}
	}
	if q.Enqueue(ctx, model.Job{ID: "job3", Kind: model.JobReload}) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				q.Enqueue(ctx, model.Job{ID: fmt.Sprintf("job-%d-%d", id, j), Kind: model.JobNotifyAll})
			}
		}(g)
	}
	wg.Wait()

	if l := q.Len(ctx); l != 500 {
		t.Errorf("expected length 500, got %d", l)
	}

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	count := 0
	for range q.Dequeue(ctx) {
		count++
	}
	if count != 500 {
		t.Errorf("expected to drain 500 jobs, got %d", count)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	if q.IsClosed() {
		t.Error("expected queue to start open")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, model.Job{ID: "late"}) {
		t.Error("expected enqueue to fail after close")
	}
	if _, ok := <-q.Dequeue(ctx); ok {
		t.Error("expected dequeue channel to be closed")
	}
}

func TestInMemoryQueue_CanceledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A canceled context with a free slot may still enqueue; a full queue must not block.
	q.Enqueue(ctx, model.Job{ID: "a"})
	q.Enqueue(ctx, model.Job{ID: "b"})
	if l := q.Len(context.Background()); l > 1 {
		t.Errorf("expected at most 1 job, got %d", l)
	}
}
