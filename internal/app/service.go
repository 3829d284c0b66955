// Package service wires the schedule store, ingestion, queries and
// notifications into the operations exposed over HTTP and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/exambot/internal/adapters/channels"
	"github.com/okian/exambot/internal/adapters/ical"
	"github.com/okian/exambot/internal/adapters/mq/events"
	"github.com/okian/exambot/internal/adapters/mq/queue"
	"github.com/okian/exambot/internal/adapters/mq/worker"
	"github.com/okian/exambot/internal/adapters/repository"
	"github.com/okian/exambot/internal/adapters/source"
	"github.com/okian/exambot/internal/adapters/watcher"
	"github.com/okian/exambot/internal/domain/dedupe"
	"github.com/okian/exambot/internal/domain/ingest"
	"github.com/okian/exambot/internal/domain/model"
	"github.com/okian/exambot/internal/domain/notify"
	"github.com/okian/exambot/internal/domain/query"
	"github.com/okian/exambot/internal/domain/types"
	"github.com/okian/exambot/pkg/logger"
	"github.com/okian/exambot/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// Service implements the operations behind the HTTP API and the CLI.
type Service struct {
	mu sync.Mutex

	// Core components
	store      *repository.SnapshotStore
	pipeline   *ingest.Pipeline
	formatter  *query.Formatter
	reconciler *notify.Reconciler
	exporter   *ical.Exporter

	// Collaborators
	directory notify.ChannelDirectory
	locker    notify.Locker
	fetcher   source.Fetcher
	publisher events.Publisher

	// Background work
	queue   *queue.InMemoryQueue
	deduper dedupe.Deduper
	worker  *worker.InMemoryWorker
	watcher *watcher.FileWatcher

	// Configuration
	dataFile        string
	sheet           string
	budget          int
	ingestOpts      []ingest.Option
	notifyWorkers   int
	refreshInterval time.Duration
	watchDataFile   bool
	queueSize       int
	dedupeSize      int
	jobTimeout      time.Duration

	// Ingestion state; ingestMu makes ingestion single-flight.
	ingestMu sync.Mutex
	lastHash [32]byte
	hashed   bool

	stateMu   sync.RWMutex
	sourceURL string
	lastErr   string

	// Lifecycle
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc
	stopCh    chan struct{}
	wg        sync.WaitGroup
	now       func() time.Time

	logger logger.Logger
}

// New constructs a Service. Nothing runs in the background until Start.
func New(opts ...Option) *Service {
	s := &Service{
		dataFile:      "data/timetable.xlsx",
		budget:        2000,
		notifyWorkers: 4,
		watchDataFile: false,
		queueSize:     64,
		dedupeSize:    1024,
		jobTimeout:    5 * time.Minute,
		stopCh:        make(chan struct{}),
		now:           time.Now,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.directory == nil {
		s.directory = channels.NewBoard("exambot")
	}
	if s.fetcher == nil {
		s.fetcher = source.NewRouter(source.NewHTTPFetcher(), nil)
	}
	if s.publisher == nil {
		s.publisher = events.NewLogPublisher(s.logger.Named("events"))
	}

	s.store = repository.NewSnapshotStore(repository.WithClock(s.now))
	s.pipeline = ingest.New(s.store, append(s.ingestOpts, ingest.WithLogger(s.logger.Named("ingest")))...)
	s.formatter = query.New(s.store, query.WithLogger(s.logger.Named("query")))
	s.reconciler = notify.NewReconciler(s.formatter, s.directory,
		notify.WithBudget(s.budget),
		notify.WithWorkers(s.notifyWorkers),
		notify.WithLocker(s.locker),
		notify.WithLogger(s.logger.Named("notify")),
	)
	s.exporter = ical.New(ical.WithClock(s.now))

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.worker = worker.NewInMemoryWorker(s.queue, worker.HandlerFunc(s.Handle),
		worker.WithName("jobs"),
		worker.WithReleaser(s.deduper),
		worker.WithJobTimeout(s.jobTimeout),
		worker.WithLogger(s.logger),
	)
	return s
}

// Start loads the data file if present and starts background work: the job
// worker, the data-file watcher and the refresh ticker.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting exam service...")

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.startedAt = s.now()

	if _, err := os.Stat(s.dataFile); err == nil {
		if _, err := s.ingestFile(runCtx, s.dataFile, "startup", false); err != nil {
			s.logger.Warn(ctx, "initial load failed; starting with an empty schedule", logger.Error(err))
		}
	} else if s.SourceURL() != "" {
		if _, _, err := s.Enqueue(runCtx, model.JobRefresh, "startup"); err != nil {
			s.logger.Warn(ctx, "could not queue initial refresh", logger.Error(err))
		}
	}

	if s.watchDataFile {
		if err := s.startWatcher(runCtx); err != nil {
			cancel()
			return err
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker.Run(runCtx)
	}()

	if s.refreshInterval > 0 {
		s.wg.Add(1)
		go s.refreshLoop(runCtx)
	}

	s.started = true
	s.logger.Info(ctx, "exam service started",
		logger.String("dataFile", s.dataFile),
		logger.Int("courses", s.store.Count(ctx)),
		logger.Bool("watch", s.watchDataFile),
		logger.Any("refreshInterval", s.refreshInterval.String()),
	)
	return nil
}

func (s *Service) startWatcher(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.dataFile), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrDataFile, err)
	}
	w, err := watcher.New(s.dataFile, func(ctx context.Context) {
		if _, _, err := s.Enqueue(ctx, model.JobReload, "watch"); err != nil {
			s.logger.Warn(ctx, "could not queue reload", logger.Error(err))
		}
	}, watcher.WithLogger(s.logger.Named("watcher")))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	s.watcher = w
	return nil
}

func (s *Service) refreshLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if s.SourceURL() == "" {
				continue
			}
			if _, _, err := s.Enqueue(ctx, model.JobRefresh, "schedule"); err != nil {
				s.logger.Warn(ctx, "could not queue refresh", logger.Error(err))
			}
		}
	}
}

// Stop gracefully shuts down background work. The in-flight job is allowed
// to finish up to a timeout.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping exam service...")

	if s.watcher != nil {
		s.watcher.Stop()
		s.watcher = nil
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	_ = s.queue.Close()
	sctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	if err := s.worker.Shutdown(sctx); err != nil {
		s.logger.Warn(ctx, "worker did not stop in time", logger.Error(err))
	}
	cancel()
	s.cancel()
	s.wg.Wait()

	if err := s.publisher.Close(); err != nil {
		s.logger.Warn(ctx, "closing event publisher", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "exam service stopped")
}

// SourceURL returns the configured source URL.
func (s *Service) SourceURL() string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.sourceURL
}

// SetSourceURL changes where updates are fetched from.
func (s *Service) SetSourceURL(ctx context.Context, raw string, privileged bool) error {
	if !privileged {
		return ErrNotPrivileged
	}
	u, err := source.ValidateURL(raw)
	if err != nil {
		return err
	}
	s.stateMu.Lock()
	s.sourceURL = u.String()
	s.stateMu.Unlock()

	s.logger.Info(ctx, "source url updated", logger.String("url", u.Redacted()))
	return nil
}

// Store exposes the live schedule for read-only use.
func (s *Service) Store() repository.Reader { return s.store }

// Board returns the channel directory when it is the in-memory board.
func (s *Service) Board() (*channels.Board, bool) {
	b, ok := s.directory.(*channels.Board)
	return b, ok
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.Stats {
	ctx := context.Background()
	snap := s.store.Snapshot(ctx)

	s.mu.Lock()
	startedAt := s.startedAt
	s.mu.Unlock()

	s.stateMu.RLock()
	lastErr, src := s.lastErr, s.sourceURL
	s.stateMu.RUnlock()

	st := types.Stats{
		StartedAt:   startedAt,
		Courses:     snap.Len(),
		Generation:  snap.Generation,
		LoadedAt:    snap.LoadedAt,
		LastError:   lastErr,
		SourceURL:   src,
		DataFile:    s.dataFile,
		QueueLength: s.queue.Len(ctx),
		Pending:     s.deduper.Size(),
	}
	if !startedAt.IsZero() {
		st.Uptime = s.now().Sub(startedAt).Round(time.Second).String()
	}
	metrics.UpdateJobQueueSize(st.QueueLength)
	return st
}

func (s *Service) publish(ctx context.Context, e events.Event) { //nolint:gocritic // hugeParam: events are small value types
	if e.At.IsZero() {
		e.At = s.now()
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		metrics.RecordErrorByComponent("events", "publish")
		s.logger.Warn(ctx, "event not published",
			logger.String("type", e.Type),
			logger.Error(err),
		)
	}
}

func (s *Service) setLastError(err error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if err == nil {
		s.lastErr = ""
		return
	}
	s.lastErr = err.Error()
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
