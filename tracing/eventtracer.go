package tracing

import (
	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/model"
)

// An EventWriter stores job events somewhere.
type EventWriter interface {
	Write(event Event)
	Flush()
}

// EventTracer turns job events into Events and passes them to a writer.
type EventTracer struct {
	writer EventWriter
	filter JobFilter
}

// NewEventTracer creates an EventTracer. A nil filter selects all jobs.
func NewEventTracer(writer EventWriter, filter JobFilter) *EventTracer {
	return &EventTracer{
		writer: writer,
		filter: filter,
	}
}

func (t *EventTracer) record(now int, kind EventKind, job model.JobRecord) {
	if t.filter != nil && !t.filter(job) {
		return
	}

	t.writer.Write(Event{Tick: now, Kind: kind, Job: job})
}

// JobReleased records a release.
func (t *EventTracer) JobReleased(now int, job model.JobRecord) {
	t.record(now, EventReleased, job)
}

// JobPreempted records a preemption.
func (t *EventTracer) JobPreempted(now int, job model.JobRecord) {
	t.record(now, EventPreempted, job)
}

// JobOverdue records a job passing its deadline.
func (t *EventTracer) JobOverdue(now int, job model.JobRecord) {
	t.record(now, EventOverdue, job)
}

// JobMissed records a deadline miss.
func (t *EventTracer) JobMissed(now int, job model.JobRecord) {
	t.record(now, EventMissed, job)
}

// JobCompleted records a completion.
func (t *EventTracer) JobCompleted(now int, job model.JobRecord) {
	t.record(now, EventCompleted, job)
}

// Tick does nothing.
func (t *EventTracer) Tick(_ engine.Slot) {
	// Do nothing
}
