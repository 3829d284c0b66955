// Command fixture-gen writes a synthetic exam timetable workbook.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/exambot/internal/fixture"
	"github.com/okian/exambot/pkg/logger"
)

const (
	defaultCourses = 120
	defaultSeed    = 1
)

func main() {
	var (
		out     = flag.String("out", "timetable.xlsx", "Output workbook path")
		courses = flag.Int("courses", defaultCourses, "Number of exams to generate")
		seed    = flag.Uint64("seed", defaultSeed, "Random seed; equal seeds give equal workbooks")
		start   = flag.String("start", time.Now().UTC().Format(time.DateOnly), "First day of the exam period (YYYY-MM-DD)")
		title   = flag.String("title", "Examination timetable", "Title written in cell A1")
		junk    = flag.Bool("junk", true, "Append a footnote row and a malformed course row")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat("console")); err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx := context.Background()
	log := logger.Get().Named("fixture-gen")

	from, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		log.Fatal(ctx, "invalid -start", logger.Error(err))
	}

	exams := fixture.Generate(*courses, *seed, from)
	if *junk {
		exams = append(exams,
			fixture.Exam{},
			fixture.Exam{Course: "* Rooms subject to change"},
			fixture.Exam{Course: "COMP10", Duration: 120, Rooms: "TBC"},
		)
	}

	if err := fixture.WriteFile(*out, *title, exams); err != nil {
		log.Fatal(ctx, "failed to write workbook", logger.Error(err))
	}
	log.Info(ctx, "workbook written",
		logger.String("path", *out),
		logger.Int("exams", *courses),
		logger.Any("seed", *seed),
	)
	_ = logger.Sync()
}
