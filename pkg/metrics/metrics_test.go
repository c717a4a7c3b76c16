package metrics

import (
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

			Convey("Then collectors are registered under the perfboard namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.uploads.WithLabelValues("performance", "success").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "perfboard_api_uploads_total")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithLatencyBuckets([]float64{0.1, 0.5, 1.0}),
				WithBatchBuckets([]float64{1, 50}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names and labels follow the options", func() {
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.batchBuckets, ShouldResemble, []float64{1, 50})
				manager.summaryRequests.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "test_sub_summary_requests_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithLatencyBuckets(nil),
				WithBatchBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "perfboard")
				So(manager.subsystem, ShouldEqual, "api")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
				So(manager.batchBuckets, ShouldHaveLength, 6)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording upload metrics", func() {
			before := testutil.ToFloat64(globalManager.uploads.WithLabelValues("students", "failed"))
			RecordUpload("students", "failed")
			RecordUpload("students", "failed")

			Convey("Then the counter grows by the number of calls", func() {
				after := testutil.ToFloat64(globalManager.uploads.WithLabelValues("students", "failed"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording stored rows", func() {
			before := testutil.ToFloat64(globalManager.rowsStored.WithLabelValues("performance"))
			RecordRowsStored("performance", 120)

			Convey("Then rows are added, not counted", func() {
				after := testutil.ToFloat64(globalManager.rowsStored.WithLabelValues("performance"))
				So(after-before, ShouldEqual, 120)
			})
		})

		Convey("When updating record gauges", func() {
			UpdateRecordCount("performance_data", 42)
			UpdateRecordCount("performance_data", 40)

			Convey("Then the last value wins", func() {
				So(testutil.ToFloat64(globalManager.records.WithLabelValues("performance_data")), ShouldEqual, 40)
			})
		})

		Convey("When tracking in-flight requests", func() {
			base := testutil.ToFloat64(globalManager.httpInFlight)
			IncInFlight()
			IncInFlight()
			DecInFlight()

			Convey("Then the gauge reflects the balance", func() {
				So(testutil.ToFloat64(globalManager.httpInFlight)-base, ShouldEqual, 1)
				DecInFlight()
			})
		})

		Convey("When recording the remaining collectors", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordUploadDuration("performance", 12.5)
					RecordRowWarnings("performance", 3)
					RecordBatchSize(4)
					RecordArchiveFailure()
					RecordDuplicateUpload()
					RecordSummaryRequest()
					RecordCacheHit()
					RecordCacheMiss()
					RecordCacheError()
					RecordRepositoryQueryLatency("summary", 3.2)
					RecordHTTPRequest("/api/summary/", "GET", "200")
					RecordHTTPRequestDuration("/api/summary/", "GET", "200", 5.0)
					RecordRateLimited("/api/upload/")
					RecordErrorByComponent("repository", "query_failed")
					RecordErrorByEndpoint("/api/upload/", "POST", "validation_error")
					UpdateSystemMemoryUsage(1024)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.4)
				}, ShouldNotPanic)
			})
		})

		Convey("When asking for the registry", func() {
			Convey("Then the custom registry is returned", func() {
				So(GetRegistry(), ShouldEqual, customRegistry)
			})
		})
	})
}
