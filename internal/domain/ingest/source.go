package ingest

import (
	"context"
	"io"
)

// SliceSource is a RowSource over rows held in memory.
type SliceSource struct {
	rows []Row
	pos  int
}

// NewSliceSource returns a RowSource yielding rows in order.
func NewSliceSource(rows ...Row) *SliceSource {
	return &SliceSource{rows: rows}
}

// Next implements RowSource.
func (s *SliceSource) Next(ctx context.Context) (Row, error) {
	if s.pos >= len(s.rows) {
		return Row{}, io.EOF
	}
	r := s.rows[s.pos]
	s.pos++
	return r, nil
}

// NewRow builds a Row from up to five cell values.
func NewRow(number int, cells ...string) Row {
	r := Row{Number: number}
	copy(r.Cells[:], cells)
	return r
}
