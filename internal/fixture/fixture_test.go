package fixture_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okian/exambot/internal/domain/course"
	"github.com/okian/exambot/internal/fixture"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSerial(t *testing.T) {
	Convey("Serials count days from the spreadsheet epoch", t, func() {
		So(fixture.Serial(time.Date(2021, 1, 1, 15, 4, 0, 0, time.UTC)), ShouldEqual, 44197)
		So(fixture.Serial(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)), ShouldEqual, 25569)
		So(fixture.Fraction(12*time.Hour), ShouldEqual, 0.5)
		So(fixture.Fraction(6*time.Hour), ShouldEqual, 0.25)
	})
}

func TestGenerate(t *testing.T) {
	Convey("Given a seed", t, func() {
		start := time.Date(2021, 11, 1, 0, 0, 0, 0, time.UTC)
		a := fixture.Generate(50, 7, start)
		b := fixture.Generate(50, 7, start)

		Convey("Then generation is reproducible", func() {
			So(a, ShouldResemble, b)
		})

		Convey("Then codes are distinct canonical course codes within the window", func() {
			seen := map[string]bool{}
			for _, e := range a {
				code, err := course.NormalizeFreeText(e.Course)
				So(err, ShouldBeNil)
				So(code.String(), ShouldEqual, e.Course)
				So(seen[e.Course], ShouldBeFalse)
				seen[e.Course] = true
				So(e.Date.Before(start), ShouldBeFalse)
				So(e.Date.Before(start.AddDate(0, 0, 21)), ShouldBeTrue)
			}
			So(seen, ShouldHaveLength, 50)
		})
	})
}

func TestBytes(t *testing.T) {
	Convey("Given a written workbook", t, func() {
		data, err := fixture.Bytes("Exam timetable", []fixture.Exam{{Course: "COMP102", Duration: 120}})
		So(err, ShouldBeNil)

		f, err := excelize.OpenReader(bytes.NewReader(data))
		So(err, ShouldBeNil)
		defer f.Close()

		Convey("Then the layout has the title block and data from row 4", func() {
			So(f.GetSheetName(0), ShouldEqual, fixture.SheetName)
			title, _ := f.GetCellValue(fixture.SheetName, "A1")
			So(title, ShouldEqual, "Exam timetable")
			header, _ := f.GetCellValue(fixture.SheetName, "E3")
			So(header, ShouldEqual, "Rooms")
			code, _ := f.GetCellValue(fixture.SheetName, "A4")
			So(code, ShouldEqual, "COMP102")
			date, _ := f.GetCellValue(fixture.SheetName, "C4")
			So(date, ShouldBeEmpty)
		})
	})
}
