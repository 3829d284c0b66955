package service

import (
	"time"

	"github.com/okian/exambot/internal/adapters/mq/events"
	"github.com/okian/exambot/internal/adapters/source"
	"github.com/okian/exambot/internal/domain/ingest"
	"github.com/okian/exambot/internal/domain/notify"
	"github.com/okian/exambot/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataFile sets the local timetable workbook path.
func WithDataFile(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dataFile = path
		}
	}
}

// WithSheet selects the worksheet to read. Empty means the first sheet.
func WithSheet(name string) Option {
	return func(s *Service) {
		s.sheet = name
	}
}

// WithSourceURL sets where updates are fetched from. The URL is assumed to
// have been validated by the caller.
func WithSourceURL(raw string) Option {
	return func(s *Service) {
		s.sourceURL = raw
	}
}

// WithBudget sets the per-message character ceiling.
func WithBudget(budget int) Option {
	return func(s *Service) {
		if budget > 0 {
			s.budget = budget
		}
	}
}

// WithIngestOptions passes options through to the ingestion pipeline.
func WithIngestOptions(opts ...ingest.Option) Option {
	return func(s *Service) {
		s.ingestOpts = append(s.ingestOpts, opts...)
	}
}

// WithNotifyWorkers bounds concurrent reconciliations in a batch.
func WithNotifyWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.notifyWorkers = n
		}
	}
}

// WithRefreshInterval schedules periodic updates. Zero disables them.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithWatchDataFile re-ingests the data file when it changes on disk.
func WithWatchDataFile(watch bool) Option {
	return func(s *Service) {
		s.watchDataFile = watch
	}
}

// WithQueueSize sets the maximum number of pending background jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds how many pending job keys are tracked.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithJobTimeout bounds each background job.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.jobTimeout = d
		}
	}
}

// WithDirectory sets where course channels are looked up.
func WithDirectory(dir notify.ChannelDirectory) Option {
	return func(s *Service) {
		if dir != nil {
			s.directory = dir
		}
	}
}

// WithLocker replaces the in-process per-course lock.
func WithLocker(l notify.Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

// WithFetcher sets how source URLs are downloaded.
func WithFetcher(f source.Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithPublisher sets where domain events are sent.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithClock sets the service time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
