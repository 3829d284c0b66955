package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okian/exambot/internal/adapters/mq/events"
	"github.com/okian/exambot/internal/adapters/spreadsheet"
	"github.com/okian/exambot/internal/domain/ingest"
	"github.com/okian/exambot/internal/domain/types"
	"github.com/okian/exambot/pkg/logger"
	"github.com/okian/exambot/pkg/metrics"
)

// Ingest loads the workbook at path, or the configured data file when path
// is empty, and replaces the schedule with it.
func (s *Service) Ingest(ctx context.Context, path string) (types.IngestReport, error) {
	if path == "" {
		path = s.dataFile
	}
	return s.ingestFile(ctx, path, "ingest", false)
}

// Update fetches the workbook from the source URL, ingests it and, once it
// has been accepted, stores it as the new data file.
func (s *Service) Update(ctx context.Context, privileged bool) (types.IngestReport, error) {
	if !privileged {
		return types.IngestReport{}, ErrNotPrivileged
	}
	return s.refresh(ctx, "update")
}

func (s *Service) refresh(ctx context.Context, trigger string) (types.IngestReport, error) {
	url := s.SourceURL()
	if url == "" {
		return types.IngestReport{}, ErrNoSource
	}

	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.ingestFailed(ctx, trigger, err)
		return types.IngestReport{}, err
	}
	rep, err := s.ingestBytes(ctx, data, trigger, false)
	if err != nil {
		return rep, err
	}
	if err := writeAtomic(s.dataFile, data); err != nil {
		// The schedule is live; only the on-disk copy is stale.
		s.logger.Warn(ctx, "could not store fetched workbook", logger.Error(err))
		metrics.RecordErrorByComponent("service", "data_file")
	}
	return rep, nil
}

func (s *Service) ingestFile(ctx context.Context, path, trigger string, skipUnchanged bool) (types.IngestReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrDataFile, err)
		s.ingestFailed(ctx, trigger, err)
		return types.IngestReport{}, err
	}
	return s.ingestBytes(ctx, data, trigger, skipUnchanged)
}

func (s *Service) ingestBytes(ctx context.Context, data []byte, trigger string, skipUnchanged bool) (types.IngestReport, error) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	sum := sha256.Sum256(data)
	if skipUnchanged && s.hashed && sum == s.lastHash {
		snap := s.store.Snapshot(ctx)
		s.logger.Debug(ctx, "workbook unchanged; skipping ingestion", logger.String("trigger", trigger))
		return types.IngestReport{
			Courses:    snap.Len(),
			Generation: snap.Generation,
			LoadedAt:   snap.LoadedAt,
			Unchanged:  true,
		}, nil
	}

	src, err := spreadsheet.Open(bytes.NewReader(data), spreadsheet.WithSheet(s.sheet))
	if err != nil {
		s.ingestFailed(ctx, trigger, err)
		return types.IngestReport{}, err
	}
	defer func() { _ = src.Close() }()

	res, err := s.pipeline.Ingest(ctx, src)
	if err != nil {
		s.ingestFailed(ctx, trigger, err)
		return types.IngestReport{}, err
	}

	s.lastHash, s.hashed = sum, true
	s.setLastError(nil)
	s.publish(ctx, events.Event{
		Type:       events.TypeScheduleIngested,
		Generation: res.Generation,
		Courses:    res.CourseCount,
	})
	s.logger.Info(ctx, "schedule updated",
		logger.String("trigger", trigger),
		logger.Int("courses", res.CourseCount),
		logger.Any("generation", res.Generation),
	)
	return ingestReport(res), nil
}

func (s *Service) ingestFailed(ctx context.Context, trigger string, err error) {
	s.setLastError(err)
	s.publish(ctx, events.Event{Type: events.TypeIngestFailed, Reason: err.Error()})
	if isCanceled(err) {
		s.logger.Warn(ctx, "ingestion abandoned", logger.String("trigger", trigger), logger.Error(err))
		return
	}
	s.logger.Error(ctx, "ingestion failed",
		logger.String("trigger", trigger),
		logger.Error(err),
	)
}

func ingestReport(res ingest.Result) types.IngestReport { //nolint:gocritic // hugeParam: converted once per run
	rep := types.IngestReport{
		Courses:     res.CourseCount,
		Generation:  res.Generation,
		RowsScanned: res.RowsScanned,
		RowsSkipped: res.RowsSkipped,
		Duplicates:  res.Duplicates,
		LastRow:     res.LastRow,
		LoadedAt:    res.LoadedAt,
	}
	for _, is := range res.Issues {
		msg := ""
		if is.Err != nil {
			msg = is.Err.Error()
		}
		rep.Issues = append(rep.Issues, types.Issue{Row: is.Row, Column: is.Column, Value: is.Value, Error: msg})
	}
	return rep
}

// writeAtomic replaces path via a temp file in the same directory so readers
// and the watcher never see a partial workbook.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrDataFile, err)
	}
	tmp, err := os.CreateTemp(dir, ".timetable-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDataFile, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrDataFile, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrDataFile, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrDataFile, err)
	}
	return nil
}
