package tracing

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/rtsim/datarecording"
	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/logging"
	"github.com/sarchlab/rtsim/model"
	"github.com/sarchlab/rtsim/policy"
)

func twoTaskEngine() *engine.Engine {
	return engine.MakeBuilder().
		WithTasks([]model.Task{
			{Name: "T1", WCET: 1, Period: 4, Deadline: 4},
			{Name: "T2", WCET: 2, Period: 5, Deadline: 5},
		}).
		WithHorizon(20).
		WithPolicy(policy.NewEDF()).
		Build()
}

func runWith(tracers ...Tracer) *engine.Result {
	e := twoTaskEngine()
	for _, t := range tracers {
		CollectTrace(e, t)
	}

	result, err := e.Run()
	Expect(err).NotTo(HaveOccurred())

	return result
}

var _ = Describe("CollectTrace", func() {
	var (
		mockCtrl *gomock.Controller
		tracer   *MockTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		tracer = NewMockTracer(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should forward every engine event", func() {
		tracer.EXPECT().JobReleased(0, gomock.Any()).Times(2)
		tracer.EXPECT().JobReleased(gomock.Any(), gomock.Any()).Times(7)
		tracer.EXPECT().JobCompleted(gomock.Any(), gomock.Any()).Times(9)
		tracer.EXPECT().JobPreempted(16, gomock.Any()).
			Do(func(_ int, job model.JobRecord) {
				Expect(job.ID).To(Equal("T2#3"))
			})
		tracer.EXPECT().Tick(gomock.Any()).Times(20)

		runWith(tracer)
	})

	It("should not attach the same tracer twice", func() {
		e := twoTaskEngine()
		CollectTrace(e, tracer)

		Expect(func() { CollectTrace(e, tracer) }).To(Panic())
		Expect(e.NumHooks()).To(Equal(1))
	})

	It("should report late completions as misses", func() {
		e := engine.MakeBuilder().
			WithTasks([]model.Task{
				{Name: "H", WCET: 2, Period: 3, Deadline: 3},
				{Name: "L", WCET: 3, Period: 6, Deadline: 6},
			}).
			WithHorizon(12).
			WithPolicy(policy.NewRM()).
			WithMissPolicy(engine.ContinueAfterMiss).
			Build()

		tracer.EXPECT().JobReleased(gomock.Any(), gomock.Any()).AnyTimes()
		tracer.EXPECT().JobPreempted(gomock.Any(), gomock.Any()).AnyTimes()
		tracer.EXPECT().JobCompleted(gomock.Any(), gomock.Any()).AnyTimes()
		tracer.EXPECT().Tick(gomock.Any()).AnyTimes()
		tracer.EXPECT().JobOverdue(6, gomock.Any()).
			Do(func(_ int, job model.JobRecord) {
				Expect(job.ID).To(Equal("L#0"))
			})
		tracer.EXPECT().JobMissed(8, gomock.Any()).
			Do(func(_ int, job model.JobRecord) {
				Expect(job.ID).To(Equal("L#0"))
				Expect(job.Lateness).To(Equal(3))
			})

		CollectTrace(e, tracer)
		_, err := e.Run()
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("ResponseTimeTracer", func() {
	It("should collect response times per task", func() {
		tracer := NewResponseTimeTracer(nil)
		runWith(tracer)

		Expect(tracer.Tasks()).To(Equal([]string{"T1", "T2"}))
		Expect(tracer.TotalCount("T1")).To(Equal(uint64(5)))
		Expect(tracer.AverageTime("T1")).To(BeNumerically("~", 1.0))
		Expect(tracer.MaxTime("T1")).To(Equal(1))
		Expect(tracer.TotalCount("T2")).To(Equal(uint64(4)))
		Expect(tracer.AverageTime("T2")).To(BeNumerically("~", 2.5))
		Expect(tracer.MaxTime("T2")).To(Equal(3))
		Expect(tracer.TotalCount("T3")).To(BeZero())
	})

	It("should apply the filter", func() {
		tracer := NewResponseTimeTracer(TaskNamed("T2"))
		runWith(tracer)

		Expect(tracer.Tasks()).To(Equal([]string{"T2"}))
	})
})

var _ = Describe("BusyTimeTracer", func() {
	It("should count busy and idle ticks", func() {
		tracer := NewBusyTimeTracer()
		result := runWith(tracer)

		Expect(tracer.BusyTime("T1")).To(Equal(5))
		Expect(tracer.BusyTime("T2")).To(Equal(8))
		Expect(tracer.BusyTime("")).To(Equal(result.Statistics.BusyTicks))
		Expect(tracer.IdleTime()).To(Equal(7))
		Expect(tracer.LongestBusyPeriod()).To(Equal(3))
	})
})

var _ = Describe("LogTracer", func() {
	It("should log job events", func() {
		var buf bytes.Buffer
		logger := logging.NewLoggerWithWriter(LevelTrace, "text", &buf)

		runWith(NewLogTracer(logger))

		out := buf.String()
		Expect(out).To(ContainSubstring("job released"))
		Expect(out).To(ContainSubstring("job=T1#0"))
		Expect(out).To(ContainSubstring("job preempted"))
		Expect(out).To(ContainSubstring("task=IDLE"))
		Expect(out).NotTo(ContainSubstring("deadline missed"))
	})
})

var _ = Describe("Event writers", func() {
	It("should write events into a CSV file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")
		writer := NewCSVTraceWriter(path)
		Expect(writer.Init()).To(Succeed())
		Expect(writer.Path()).To(Equal(path + ".csv"))

		runWith(NewEventTracer(writer, nil))
		Expect(writer.Close()).To(Succeed())
		Expect(writer.Close()).To(Succeed())

		f, err := os.Open(path + ".csv")
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		rows, err := csv.NewReader(f).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(20))
		Expect(rows[0]).To(Equal(csvHeader))
		Expect(rows[1][:4]).To(Equal([]string{"0", "released", "T1#0", "T1"}))

		Expect(NewCSVTraceWriter(path).Init()).NotTo(Succeed())
	})

	It("should write events as a JSON array", func() {
		var buf bytes.Buffer
		writer := NewJSONTraceWriter(&buf)

		runWith(NewEventTracer(writer, TaskNamed("T1")))
		Expect(writer.Close()).To(Succeed())

		var events []map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &events)).To(Succeed())
		Expect(events).To(HaveLen(10))
		Expect(events[0]["kind"]).To(Equal("released"))
		Expect(events[1]["kind"]).To(Equal("completed"))
	})

	It("should write an empty JSON array", func() {
		var buf bytes.Buffer
		writer := NewJSONTraceWriter(&buf)
		Expect(writer.Close()).To(Succeed())

		var events []map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &events)).To(Succeed())
		Expect(events).To(BeEmpty())
	})
})

var _ = Describe("DBTracer", func() {
	var (
		db       *sql.DB
		recorder datarecording.DataRecorder
		reader   datarecording.DataReader
	)

	BeforeEach(func() {
		var err error
		db, err = sql.Open("sqlite3", ":memory:")
		Expect(err).NotTo(HaveOccurred())
		db.SetMaxOpenConns(1)

		recorder = datarecording.NewWithDB(db)
		reader = datarecording.NewReaderWithDB(db)
		reader.MapTable(EventsTable, EventRow{})
		reader.MapTable(SegmentsTable, SegmentRow{})
	})

	AfterEach(func() {
		Expect(recorder.Close()).To(Succeed())
		Expect(db.Close()).To(Succeed())
	})

	query := func(table string) []any {
		rows, _, err := reader.Query(context.Background(), table,
			datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())

		return rows
	}

	It("should record events and execution segments", func() {
		tracer := NewDBTracer("run1", recorder)
		runWith(tracer)
		tracer.Terminate()

		Expect(query(EventsTable)).To(HaveLen(19))

		segments := query(SegmentsTable)
		Expect(segments).To(HaveLen(10))
		Expect(segments[1]).To(Equal(&SegmentRow{
			RunID: "run1", Task: "T2", Start: 1, End: 3,
		}))
	})

	It("should only record within the time range", func() {
		tracer := NewDBTracer("run1", recorder)
		tracer.SetTimeRange(0, 5)
		runWith(tracer)
		tracer.Terminate()

		Expect(query(EventsTable)).To(HaveLen(6))
		Expect(query(SegmentsTable)).To(HaveLen(3))
	})

	It("should share the tables between runs", func() {
		first := NewDBTracer("run1", recorder)
		second := NewDBTracer("run2", recorder)
		runWith(first)
		runWith(second)
		first.Terminate()
		second.Terminate()

		Expect(query(EventsTable)).To(HaveLen(38))
	})
})
