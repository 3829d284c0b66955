// Package ingest turns timetable rows into a schedule generation.
//
// Rows are scanned from the first data row until either the configured
// maximum row is passed or a run of consecutive non-course rows is seen.
// A fresh mapping is built on the side and published only when the whole
// scan succeeds, so a failing source never disturbs the live schedule.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/okian/exambot/internal/adapters/repository"
	"github.com/okian/exambot/internal/domain/course"
	"github.com/okian/exambot/internal/domain/model"
	"github.com/okian/exambot/internal/domain/temporal"
	"github.com/okian/exambot/pkg/logger"
	"github.com/okian/exambot/pkg/metrics"
)

// Column positions within a Row.
const (
	ColCourse = iota
	ColDuration
	ColDate
	ColStart
	ColRooms
	ColumnCount
)

// columnNames are the spreadsheet letters for each column, used in issues.
var columnNames = [ColumnCount]string{"A", "B", "C", "D", "E"}

// Default scan configuration.
const (
	defaultFirstRow      = 4
	defaultBlankRunLimit = 25
)

// Row is one spreadsheet row: a 1-indexed row number and the raw text of
// columns A..E. Empty strings mean an empty cell.
type Row struct {
	Number int
	Cells  [ColumnCount]string
}

// RowSource yields rows in ascending row order and returns io.EOF when done.
type RowSource interface {
	Next(ctx context.Context) (Row, error)
}

// Issue records a cell that was present but could not be decoded.
type Issue struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Err    error  `json:"-"`
}

// Result summarizes a successful ingestion run.
type Result struct {
	CourseCount int
	RowsScanned int
	RowsSkipped int
	Duplicates  int
	LastRow     int
	Issues      []Issue
	Generation  uint64
	LoadedAt    time.Time
}

// Pipeline ingests rows into a repository.Store.
type Pipeline struct {
	store         repository.Store
	firstRow      int
	maxRow        int
	blankRunLimit int
	allowEmpty    bool
	logger        logger.Logger
}

// New creates a pipeline publishing into store.
func New(store repository.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:         store,
		firstRow:      defaultFirstRow,
		blankRunLimit: defaultBlankRunLimit,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest scans src and, on success, replaces the store's contents.
func (p *Pipeline) Ingest(ctx context.Context, src RowSource) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordIngestDuration(float64(time.Since(start).Milliseconds()))
	}()

	built, res, err := p.scan(ctx, src)
	if err != nil {
		metrics.RecordIngestRun("failed")
		metrics.RecordErrorByComponent("ingest", errorType(err))
		p.logger.Error(ctx, "ingestion aborted; schedule left unchanged",
			logger.Int("rowsScanned", res.RowsScanned),
			logger.Error(err),
		)
		return res, err
	}

	snap := p.store.Replace(ctx, built)
	res.Generation = snap.Generation
	res.LoadedAt = snap.LoadedAt

	metrics.RecordIngestRun("success")
	metrics.RecordIngestRows(res.RowsScanned, res.RowsSkipped)
	metrics.RecordIngestIssues(len(res.Issues))
	p.logger.Info(ctx, "schedule ingested",
		logger.Int("courses", res.CourseCount),
		logger.Int("rowsScanned", res.RowsScanned),
		logger.Int("rowsSkipped", res.RowsSkipped),
		logger.Int("issues", len(res.Issues)),
		logger.Int("lastRow", res.LastRow),
		logger.Any("generation", res.Generation),
	)
	return res, nil
}

// scan reads rows into a new mapping without touching the store.
func (p *Pipeline) scan(ctx context.Context, src RowSource) (map[course.Code]model.ExamRecord, Result, error) {
	var res Result
	built := make(map[course.Code]model.ExamRecord)
	blankRun := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, res, fmt.Errorf("%w: %w", ErrIngestionSource, err)
		}
		row, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, res, fmt.Errorf("%w: after row %d: %w", ErrIngestionSource, res.LastRow, err)
		}
		if row.Number < p.firstRow {
			continue
		}
		if p.maxRow > 0 && row.Number > p.maxRow {
			break
		}
		res.RowsScanned++
		res.LastRow = row.Number

		code, err := course.NormalizeFreeText(row.Cells[ColCourse])
		if err != nil {
			res.RowsSkipped++
			blankRun++
			if p.blankRunLimit > 0 && blankRun >= p.blankRunLimit {
				break
			}
			continue
		}
		blankRun = 0

		rec, issues := decodeRow(code, row)
		res.Issues = append(res.Issues, issues...)
		for _, is := range issues {
			p.logger.Debug(ctx, "undecodable cell left empty",
				logger.Int("row", is.Row),
				logger.String("column", is.Column),
				logger.String("value", is.Value),
				logger.Error(is.Err),
			)
		}
		if _, dup := built[code]; dup {
			res.Duplicates++
		}
		// A resit listed below the original replaces it.
		built[code] = rec
	}

	res.CourseCount = len(built)
	if res.CourseCount == 0 && !p.allowEmpty {
		return nil, res, ErrNoCourses
	}
	return built, res, nil
}

// decodeRow converts the raw cells of a course row into a record.
func decodeRow(code course.Code, row Row) (model.ExamRecord, []Issue) {
	rec := model.ExamRecord{Course: code, Row: row.Number}
	var issues []Issue
	note := func(col int, err error) {
		issues = append(issues, Issue{Row: row.Number, Column: columnNames[col], Value: row.Cells[col], Err: err})
	}

	if v, ok, err := number(row.Cells[ColDuration]); err != nil {
		note(ColDuration, fmt.Errorf("%w: %w", ErrInvalidCell, err))
	} else if ok {
		rec.Duration = &v
	}

	if v, ok, err := number(row.Cells[ColDate]); err != nil {
		note(ColDate, fmt.Errorf("%w: %w", temporal.ErrInvalidTemporalValue, err))
	} else if ok {
		if d, err := temporal.DecodeDate(v); err != nil {
			note(ColDate, err)
		} else {
			rec.Date = &d
		}
	}

	if v, ok, err := number(row.Cells[ColStart]); err != nil {
		note(ColStart, fmt.Errorf("%w: %w", temporal.ErrInvalidTemporalValue, err))
	} else if ok {
		if c, err := temporal.DecodeStart(v); err != nil {
			note(ColStart, err)
		} else {
			rec.Start = &c
		}
	}

	if rooms := strings.TrimSpace(row.Cells[ColRooms]); rooms != "" {
		rec.Rooms = &rooms
	}
	return rec, issues
}

// number parses a numeric cell. ok is false for an empty cell.
func number(cell string) (v float64, ok bool, err error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrNoCourses):
		return "no_courses"
	default:
		return "source_failure"
	}
}
