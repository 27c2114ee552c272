package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.latencyBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})

			Convey("And collectors are registered on the given registry", func() {
				manager.queueSize.Set(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				So(families[0].GetName(), ShouldStartWith, "test_unit_")
			})
		})

		Convey("When empty values are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "leads")
				So(manager.subsystem, ShouldEqual, "scoring")
				So(manager.latencyBuckets, ShouldNotBeEmpty)
			})
		})
	})
}

func TestScoringMetrics(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When a lead is scored", func() {
			before := testutil.ToFloat64(globalManager.leadsScored.WithLabelValues("hot"))
			RecordLeadScored("hot", 9, 10, 8, 6, 8.45)

			Convey("Then the category counter increases", func() {
				So(testutil.ToFloat64(globalManager.leadsScored.WithLabelValues("hot")), ShouldEqual, before+1)
			})
		})

		Convey("When a dimension falls back", func() {
			before := testutil.ToFloat64(globalManager.scoringFallbacks.WithLabelValues("need"))
			RecordScoringFallback("need")

			Convey("Then the fallback counter increases", func() {
				So(testutil.ToFloat64(globalManager.scoringFallbacks.WithLabelValues("need")), ShouldEqual, before+1)
			})
		})

		Convey("When recording latencies and batch sizes", func() {
			Convey("Then nothing panics", func() {
				So(func() { RecordScoringLatency(0.2) }, ShouldNotPanic)
				So(func() { RecordBatchSize(12) }, ShouldNotPanic)
			})
		})
	})
}

func TestQueueAndWorkerMetrics(t *testing.T) {
	Convey("Given queue and worker metrics", t, func() {
		Convey("When gauges are updated", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(100)
			UpdateWorkerCount(4)

			Convey("Then they hold the latest value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
			})
		})

		Convey("When requests flow through the queue", func() {
			enq := testutil.ToFloat64(globalManager.queueEnqueued)
			deq := testutil.ToFloat64(globalManager.queueDequeued)
			full := testutil.ToFloat64(globalManager.queueRejections.WithLabelValues("full"))

			RecordScoreRequest()
			RecordDuplicateScoreRequest()
			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueRejection("full")

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.queueEnqueued), ShouldEqual, enq+1)
				So(testutil.ToFloat64(globalManager.queueDequeued), ShouldEqual, deq+1)
				So(testutil.ToFloat64(globalManager.queueRejections.WithLabelValues("full")), ShouldEqual, full+1)
			})
		})

		Convey("When workers report", func() {
			Convey("Then nothing panics", func() {
				So(func() { RecordWorkerProcessingLatency(1.5) }, ShouldNotPanic)
				So(func() { RecordWorkerError("load") }, ShouldNotPanic)
			})
		})
	})
}

func TestRepositoryAndHTTPMetrics(t *testing.T) {
	Convey("Given repository, publishing and HTTP metrics", t, func() {
		Convey("When they are recorded", func() {
			UpdateProspectsTotal(12)
			UpdateRankedLeads(9)
			snapshots := testutil.ToFloat64(globalManager.repositorySnapshotCount)
			IncrementRepositorySnapshotCount()

			Convey("Then gauges and counters reflect it", func() {
				So(testutil.ToFloat64(globalManager.prospectsTotal), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.rankedLeads), ShouldEqual, 9)
				So(testutil.ToFloat64(globalManager.repositorySnapshotCount), ShouldEqual, snapshots+1)
			})

			Convey("And the remaining recorders do not panic", func() {
				So(func() { RecordRepositoryLatency("rank_update", 0.01) }, ShouldNotPanic)
				So(func() { RecordEventPublished("ok") }, ShouldNotPanic)
				So(func() { RecordHTTPRequest("/leads", "GET", "200") }, ShouldNotPanic)
				So(func() { RecordHTTPRequestDuration("/leads", "GET", "200", 3) }, ShouldNotPanic)
				So(func() { RecordErrorByComponent("worker", "load") }, ShouldNotPanic)
				So(func() { UpdateSystemMemoryUsage(1 << 20) }, ShouldNotPanic)
				So(func() { UpdateSystemGoroutineCount(10) }, ShouldNotPanic)
			})
		})

		Convey("When the registry is gathered", func() {
			families, err := GetRegistry().Gather()

			Convey("Then it exposes the service metrics", func() {
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
			})
		})
	})
}
