package model_test

import (
	"testing"

	"github.com/okian/exambot/internal/domain/course"
	"github.com/okian/exambot/internal/domain/model"
	"github.com/okian/exambot/internal/domain/temporal"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExamRecordText(t *testing.T) {
	Convey("Given an exam record", t, func() {
		Convey("When every field is present", func() {
			duration := 120.0
			rooms := "HMLT206, HMLT205"
			rec := model.ExamRecord{
				Course:   course.Must("COMP102"),
				Duration: &duration,
				Date:     &temporal.Date{Day: 3, Month: 11, Year: 2021},
				Start:    &temporal.Clock{Hour: 9, Minute: 30},
				Rooms:    &rooms,
			}

			Convey("Then each field renders for display", func() {
				So(rec.DurationText(), ShouldEqual, "120")
				So(rec.DateText(), ShouldEqual, "03/11/2021")
				So(rec.StartText(), ShouldEqual, "9:30 AM")
				So(rec.RoomsText(), ShouldEqual, "HMLT206, HMLT205")
			})
		})

		Convey("When the duration has a fraction", func() {
			d := 1.5
			rec := model.ExamRecord{Duration: &d}
			So(rec.DurationText(), ShouldEqual, "1.5")
		})

		Convey("When optional fields are missing", func() {
			empty := ""
			rec := model.ExamRecord{Course: course.Must("COMP102"), Rooms: &empty}

			Convey("Then a placeholder is rendered", func() {
				So(rec.DurationText(), ShouldEqual, "-")
				So(rec.DateText(), ShouldEqual, "-")
				So(rec.StartText(), ShouldEqual, "-")
				So(rec.RoomsText(), ShouldEqual, "-")
			})
		})
	})
}
