package tracing

import (
	"slices"
	"sync"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/rtsim/datarecording"
	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/model"
)

// Tables written by DBTracer.
const (
	EventsTable   = "trace_events"
	SegmentsTable = "trace_segments"
)

// EventRow is one row of the trace_events table.
type EventRow struct {
	RunID     string `rtsim:"index"`
	Tick      int
	Kind      string
	Job       string
	Task      string `rtsim:"index"`
	Remaining int
	Lateness  int
}

// SegmentRow is one row of the trace_segments table. A segment is a
// stretch of ticks, [Start, End), in which the same task runs.
type SegmentRow struct {
	RunID string `rtsim:"index"`
	Task  string `rtsim:"index"`
	Start int
	End   int
}

// DBTracer is a tracer that stores job events and execution segments into a
// DataRecorder.
type DBTracer struct {
	mu      sync.Mutex
	runID   string
	backend datarecording.DataRecorder

	startTime, endTime int

	segment    *SegmentRow
	terminated bool
}

// NewDBTracer creates a new DBTracer. The tables are created if the
// recorder does not have them yet.
func NewDBTracer(
	runID string,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	tables := dataRecorder.ListTables()
	if !slices.Contains(tables, EventsTable) {
		dataRecorder.CreateTable(EventsTable, EventRow{})
	}

	if !slices.Contains(tables, SegmentsTable) {
		dataRecorder.CreateTable(SegmentsTable, SegmentRow{})
	}

	t := &DBTracer{
		runID:   runID,
		backend: dataRecorder,
		endTime: -1,
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// SetTimeRange limits tracing to the ticks in [startTime, endTime). A
// negative endTime means no upper limit.
func (t *DBTracer) SetTimeRange(startTime, endTime int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = startTime
	t.endTime = endTime
}

func (t *DBTracer) inRange(now int) bool {
	if now < t.startTime {
		return false
	}

	return t.endTime < 0 || now < t.endTime
}

func (t *DBTracer) writeEvent(now int, kind EventKind, job model.JobRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminated || !t.inRange(now) {
		return
	}

	t.backend.InsertData(EventsTable, EventRow{
		RunID:     t.runID,
		Tick:      now,
		Kind:      string(kind),
		Job:       job.ID,
		Task:      job.Task,
		Remaining: job.Remaining,
		Lateness:  job.Lateness,
	})
}

// JobReleased records a release.
func (t *DBTracer) JobReleased(now int, job model.JobRecord) {
	t.writeEvent(now, EventReleased, job)
}

// JobPreempted records a preemption.
func (t *DBTracer) JobPreempted(now int, job model.JobRecord) {
	t.writeEvent(now, EventPreempted, job)
}

// JobOverdue records a job passing its deadline.
func (t *DBTracer) JobOverdue(now int, job model.JobRecord) {
	t.writeEvent(now, EventOverdue, job)
}

// JobMissed records a deadline miss.
func (t *DBTracer) JobMissed(now int, job model.JobRecord) {
	t.writeEvent(now, EventMissed, job)
}

// JobCompleted records a completion.
func (t *DBTracer) JobCompleted(now int, job model.JobRecord) {
	t.writeEvent(now, EventCompleted, job)
}

// Tick extends the current execution segment or starts a new one.
func (t *DBTracer) Tick(slot engine.Slot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminated {
		return
	}

	if !t.inRange(slot.Tick) || slot.IsIdle() {
		t.endSegment()
		return
	}

	if t.segment != nil && t.segment.Task == slot.Task &&
		t.segment.End == slot.Tick {
		t.segment.End++
		return
	}

	t.endSegment()
	t.segment = &SegmentRow{
		RunID: t.runID,
		Task:  slot.Task,
		Start: slot.Tick,
		End:   slot.Tick + 1,
	}
}

func (t *DBTracer) endSegment() {
	if t.segment == nil {
		return
	}

	t.backend.InsertData(SegmentsTable, *t.segment)
	t.segment = nil
}

// Terminate writes the open segment and flushes the recorder. The tracer
// ignores everything after.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminated {
		return
	}

	t.endSegment()
	t.terminated = true
	t.backend.Flush()
}
