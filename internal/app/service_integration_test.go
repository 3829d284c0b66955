package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/exambot/internal/adapters/channels"
	service "github.com/okian/exambot/internal/app"
	"github.com/okian/exambot/internal/fixture"
	. "github.com/smartystreets/goconvey/convey"
)

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service watching its data file", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		path := filepath.Join(t.TempDir(), "timetable.xlsx")
		writeTimetable(path, timetable())
		board := channels.NewBoard("exambot", channels.WithAutoCreate(true))
		pub := &recordingPublisher{}
		svc := service.New(
			service.WithDataFile(path),
			service.WithDirectory(board),
			service.WithPublisher(pub),
			service.WithWatchDataFile(true),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the data file was loaded at startup", func() {
			stats := svc.GetStats()
			So(stats.Courses, ShouldEqual, 2)
			So(stats.Generation, ShouldEqual, 1)
			So(stats.StartedAt.IsZero(), ShouldBeFalse)
		})

		Convey("When the data file is replaced", func() {
			exams := append(timetable(), fixture.Exam{Course: "SWEN225", Duration: 120, Date: day, Start: 14 * time.Hour})
			writeTimetable(path, exams)

			Convey("Then the schedule is reloaded in the background", func() {
				So(eventually(func() bool { return svc.GetStats().Courses == 3 }), ShouldBeTrue)
			})
		})

		Convey("When a notify-all batch is queued", func() {
			rep, err := svc.NotifyAll(ctx, true, true)
			So(err, ShouldBeNil)
			So(rep.JobID, ShouldNotBeEmpty)

			Convey("Then the worker notifies every course channel", func() {
				So(eventually(func() bool {
					a, _ := board.Messages("comp-102")
					b, _ := board.Messages("engr-123")
					return len(a) == 1 && len(b) == 1 && a[0].Pinned && b[0].Pinned
				}), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service refreshing from its source on a timer", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		data, err := fixture.Bytes("Examination timetable", timetable())
		So(err, ShouldBeNil)
		fetcher := &fakeFetcher{data: data}
		svc := service.New(
			service.WithDataFile(filepath.Join(t.TempDir(), "timetable.xlsx")),
			service.WithFetcher(fetcher),
			service.WithSourceURL("https://example.org/exams.xlsx"),
			service.WithRefreshInterval(50*time.Millisecond),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the schedule is fetched without a request", func() {
			So(eventually(func() bool { return svc.GetStats().Courses == 2 }), ShouldBeTrue)
			So(eventually(func() bool { return fetcher.calls() >= 2 }), ShouldBeTrue)
		})
	})

	Convey("Stopping a service that never started is harmless", t, func() {
		svc := service.New()
		svc.Stop()
		So(svc.GetStats().Uptime, ShouldBeEmpty)
	})
}
