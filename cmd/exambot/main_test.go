package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	service "github.com/okian/exambot/internal/app"
	"github.com/okian/exambot/internal/fixture"
)

var day = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

func writeTimetable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timetable.xlsx")
	err := fixture.WriteFile(path, "Examination timetable", []fixture.Exam{
		{Course: "COMP102", Duration: 120, Date: day, Start: 9*time.Hour + 30*time.Minute, Rooms: "HMLT206"},
		{Course: "ENGR 123", Duration: 180, Date: day.AddDate(0, 0, 1), Start: 13 * time.Hour, Rooms: "KKLT303"},
		{Course: "COMP10", Duration: 60, Rooms: "TBC"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func run(ctx context.Context, args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestOfflineCommands(t *testing.T) {
	convey.Convey("Given a timetable workbook", t, func() {
		t.Setenv("EXAMBOT_LOG_LEVEL", "error")
		ctx := context.Background()
		path := writeTimetable(t)

		convey.Convey("When it is checked", func() {
			out, err := run(ctx, "check", path)

			convey.Convey("Then the report counts the courses", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldStartWith, "courses: 2\n")
			})
		})

		convey.Convey("When courses are queried", func() {
			out, err := run(ctx, "query", path, "comp 102", "fake000")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldEqual, "COMP102\t120\t01/01/2021\t9:30 AM\tHMLT206\nfake000: no exam data\n")
		})

		convey.Convey("When roles are queried", func() {
			out, err := run(ctx, "query", "--roles", path, "ENGR-123")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldEqual, "ENGR123\t180\t02/01/2021\t1:00 PM\tKKLT303\n")
		})

		convey.Convey("When everything is listed", func() {
			out, err := run(ctx, "list", path)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldEqual,
				"COMP102\t120\t01/01/2021\t9:30 AM\tHMLT206\nENGR123\t180\t02/01/2021\t1:00 PM\tKKLT303\nPage 1 of 1\n")
		})

		convey.Convey("When the file does not exist", func() {
			_, err := run(ctx, "check", filepath.Join(t.TempDir(), "missing.xlsx"))
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When arguments are missing", func() {
			_, err := run(ctx, "query", path)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestServeCommand(t *testing.T) {
	convey.Convey("Given a configuration pointing at a local timetable", t, func() {
		t.Setenv("EXAMBOT_LOG_LEVEL", "error")
		t.Setenv("EXAMBOT_ADDR", "127.0.0.1:0")
		t.Setenv("EXAMBOT_DATA_FILE", writeTimetable(t))
		t.Setenv("EXAMBOT_WATCH_DATA_FILE", "false")

		convey.Convey("When serve runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
			defer cancel()
			_, err := run(ctx, "serve")

			convey.Convey("Then it shuts down cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When redis cannot be reached", func() {
			t.Setenv("EXAMBOT_REDIS_ADDR", "127.0.0.1:1")
			_, err := run(context.Background(), "serve")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the configuration is invalid", func() {
			t.Setenv("EXAMBOT_MESSAGE_BUDGET", "0")
			_, err := run(context.Background(), "serve")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.Convey("Then system metrics update without panicking", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then service metrics update without panicking", func() {
			svc := service.New()
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then the updaters return once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			svc := service.New()
			convey.So(func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
			}, convey.ShouldNotPanic)
		})
	})
}
