// Package spreadsheet decodes an .xlsx workbook into timetable rows.
package spreadsheet

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/okian/exambot/internal/domain/ingest"
)

// Source streams rows A..E of one worksheet. Cells are read raw, so date and
// time cells come through as their serial numbers.
type Source struct {
	file  *excelize.File
	rows  *excelize.Rows
	sheet string
	row   int
}

// Open reads a workbook from r and positions on its first worksheet.
func Open(r io.Reader, opts ...Option) (*Source, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	return newSource(f, opts)
}

// OpenFile is Open for a workbook on disk.
func OpenFile(path string, opts ...Option) (*Source, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	return newSource(f, opts)
}

func newSource(f *excelize.File, opts []Option) (*Source, error) {
	s := &Source{file: f}
	for _, opt := range opts {
		opt(s)
	}
	if s.sheet == "" {
		s.sheet = f.GetSheetName(0)
	}
	if s.sheet == "" {
		_ = f.Close()
		return nil, ErrNoSheet
	}
	rows, err := f.Rows(s.sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %q: %w", ErrNoSheet, s.sheet, err)
	}
	s.rows = rows
	return s, nil
}

// Sheet returns the worksheet being read.
func (s *Source) Sheet() string { return s.sheet }

// Next implements ingest.RowSource. Rows missing from the sheet come back
// with empty cells so row numbers stay aligned with the workbook.
func (s *Source) Next(ctx context.Context) (ingest.Row, error) {
	if err := ctx.Err(); err != nil {
		return ingest.Row{}, err
	}
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return ingest.Row{}, fmt.Errorf("%w: %w", ErrRead, err)
		}
		return ingest.Row{}, io.EOF
	}
	s.row++

	cols, err := s.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return ingest.Row{}, fmt.Errorf("%w: row %d: %w", ErrRead, s.row, err)
	}
	r := ingest.Row{Number: s.row}
	copy(r.Cells[:], cols)
	return r, nil
}

// Close releases the workbook.
func (s *Source) Close() error {
	if s.rows != nil {
		_ = s.rows.Close()
	}
	return s.file.Close()
}
