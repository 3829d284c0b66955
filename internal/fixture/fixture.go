// Package fixture writes synthetic exam timetable workbooks in the layout the
// ingestion pipeline reads: a title block in rows 1-3 and one exam per row
// from row 4, columns A..E.
package fixture

import (
	"bytes"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/xuri/excelize/v2"
)

// FirstDataRow is the first row holding an exam.
const FirstDataRow = 4

// SheetName is the worksheet the timetable is written to.
const SheetName = "Timetable"

// excelEpoch is day zero of spreadsheet date serials.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Exam is one timetable row. Zero values leave the cell blank, except Start,
// which is written whenever Date is set.
type Exam struct {
	Course   string
	Duration float64
	Date     time.Time
	Start    time.Duration
	Rooms    string
}

// Serial converts a calendar date into a spreadsheet date serial.
func Serial(t time.Time) float64 {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return d.Sub(excelEpoch).Hours() / 24
}

// Fraction converts a time of day into a fraction of a day.
func Fraction(d time.Duration) float64 {
	return d.Minutes() / (24 * 60)
}

// Build lays exams out in a new workbook. The caller closes it.
func Build(title string, exams []Exam) (*excelize.File, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(SheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}

	set := func(col string, row int, v any) error {
		return f.SetCellValue(SheetName, fmt.Sprintf("%s%d", col, row), v)
	}
	if err := set("A", 1, title); err != nil {
		_ = f.Close()
		return nil, err
	}
	for i, h := range []string{"Course", "Duration", "Date", "Start", "Rooms"} {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := set(col, FirstDataRow-1, h); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	for i, e := range exams {
		row := FirstDataRow + i
		cells := map[string]any{}
		if e.Course != "" {
			cells["A"] = e.Course
		}
		if e.Duration != 0 {
			cells["B"] = e.Duration
		}
		if !e.Date.IsZero() {
			cells["C"] = Serial(e.Date)
			cells["D"] = Fraction(e.Start)
		}
		if e.Rooms != "" {
			cells["E"] = e.Rooms
		}
		for col, v := range cells {
			if err := set(col, row, v); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
		}
	}
	return f, nil
}

// Write encodes the workbook for exams to w.
func Write(w io.Writer, title string, exams []Exam) error {
	f, err := Build(title, exams)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Bytes returns the encoded workbook for exams.
func Bytes(title string, exams []Exam) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, title, exams); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile saves the workbook for exams at path.
func WriteFile(path, title string, exams []Exam) error {
	f, err := Build(title, exams)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

var (
	subjects = []string{"AIML", "COMP", "CYBR", "ECEN", "ENGR", "MATH", "NWEN", "PHYS", "STAT", "SWEN"}
	rooms    = []string{"HMLT206", "MCLT103", "MCLT101", "KKLT303", "AM102", "LBLT118", "HULT323"}
	sessions = []time.Duration{9*time.Hour + 30*time.Minute, 13*time.Hour + 30*time.Minute, 18*time.Hour + 30*time.Minute}
)

// Generate returns n exams with distinct course codes spread over the three
// weeks starting at start. The same seed always yields the same timetable.
func Generate(n int, seed uint64, start time.Time) []Exam {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	seen := make(map[string]bool, n)
	out := make([]Exam, 0, n)
	for len(out) < n && len(seen) < len(subjects)*400 {
		code := fmt.Sprintf("%s%d", subjects[rng.IntN(len(subjects))], 100+rng.IntN(400))
		if seen[code] {
			continue
		}
		seen[code] = true

		dur := 120.0
		if rng.IntN(3) == 0 {
			dur = 180
		}
		room := rooms[rng.IntN(len(rooms))]
		if rng.IntN(4) == 0 {
			room += ", " + rooms[rng.IntN(len(rooms))]
		}
		out = append(out, Exam{
			Course:   code,
			Duration: dur,
			Date:     start.AddDate(0, 0, rng.IntN(21)),
			Start:    sessions[rng.IntN(len(sessions))],
			Rooms:    room,
		})
	}
	return out
}
