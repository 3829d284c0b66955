package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/exambot/internal/domain/model"
	"github.com/okian/exambot/pkg/logger"
	"github.com/okian/exambot/pkg/metrics"
)

// Enqueue schedules a background job. When an interchangeable job is
// already pending the new one is dropped and queued reports false.
func (s *Service) Enqueue(ctx context.Context, kind model.JobKind, trigger string, codes ...string) (job model.Job, queued bool, err error) {
	job = model.Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		Codes:      codes,
		Trigger:    trigger,
		EnqueuedAt: s.now(),
	}

	key := job.Key()
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordJobCoalesced()
		s.logger.Debug(ctx, "job already pending, coalesced",
			logger.String("kind", string(kind)),
			logger.String("trigger", trigger),
		)
		return job, false, nil
	}

	if !s.queue.Enqueue(ctx, job) {
		s.deduper.Unrecord(ctx, key)
		return job, false, fmt.Errorf("%w: %s", ErrQueueFull, kind)
	}
	s.logger.Debug(ctx, "job queued",
		logger.String("jobID", job.ID),
		logger.String("kind", string(kind)),
		logger.String("trigger", trigger),
	)
	return job, true, nil
}

// Handle runs one background job. It is the worker's handler.
func (s *Service) Handle(ctx context.Context, job model.Job) error { //nolint:gocritic // hugeParam: Job is passed by value like the queue
	switch job.Kind {
	case model.JobRefresh:
		_, err := s.refresh(ctx, job.Trigger)
		return err
	case model.JobReload:
		_, err := s.ingestFile(ctx, s.dataFile, job.Trigger, true)
		return err
	case model.JobNotifyAll:
		tokens := job.Codes
		if len(tokens) == 0 {
			tokens = codeStrings(s.store.Codes(ctx))
		}
		rep := s.reconcileAll(ctx, tokens)
		s.logger.Info(ctx, "queued notification batch finished",
			logger.Int("notified", rep.Notified),
			logger.Int("failed", len(rep.Failures)),
		)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, job.Kind)
	}
}
