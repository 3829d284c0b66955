package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with the exambot namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "exambot")
				So(manager.subsystem, ShouldEqual, "schedule")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.subsystem, ShouldEqual, "test_subsystem")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "exambot")
				So(manager.subsystem, ShouldEqual, "schedule")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording ingestion metrics", func() {
			before := testutil.ToFloat64(globalManager.ingestRuns.WithLabelValues("success"))
			RecordIngestRun("success")
			RecordIngestDuration(12)
			RecordIngestRows(10, 3)
			RecordIngestIssues(1)
			UpdateSchedule(7, 2)

			Convey("Then the counters and gauges should move", func() {
				So(testutil.ToFloat64(globalManager.ingestRuns.WithLabelValues("success")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.scheduleCourses), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.scheduleGeneration), ShouldEqual, 2)
			})
		})

		Convey("When recording query, notify and job metrics", func() {
			So(func() {
				RecordQuery("exam")
				RecordQueryMiss("not_a_course")
				RecordQueryPages(2)
				RecordNotifyOutcome("done")
				RecordNotifyStep("posting", 4)
				RecordNotifyDeleted(1)
				UpdateJobQueueSize(3)
				RecordJobProcessed("update", "ok")
				RecordJobCoalesced()
				RecordSourceFetch(20, 4096)
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP and system metrics", func() {
			So(func() {
				RecordHTTPRequest("exams", "GET", "200")
				RecordHTTPRequestDuration("exams", "GET", "200", 5.0)
				RecordErrorByComponent("source", "fetch_failed")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.5)
			}, ShouldNotPanic)
		})

		Convey("When gathering from the custom registry", func() {
			RecordQuery("list")
			families, err := GetRegistry().Gather()

			Convey("Then exambot metrics should be present", func() {
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if strings.HasPrefix(f.GetName(), "exambot_schedule_query_requests_total") {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}
