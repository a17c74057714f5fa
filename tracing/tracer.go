// Package tracing observes simulations through engine hooks.
package tracing

import (
	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/model"
)

// A Tracer receives what happens to the jobs of a simulation. now is the
// tick at which the event happened.
type Tracer interface {
	JobReleased(now int, job model.JobRecord)
	JobPreempted(now int, job model.JobRecord)
	JobOverdue(now int, job model.JobRecord)
	JobMissed(now int, job model.JobRecord)
	JobCompleted(now int, job model.JobRecord)
	Tick(slot engine.Slot)
}

// EventKind names a job event.
type EventKind string

// Job events.
const (
	EventReleased  EventKind = "released"
	EventPreempted EventKind = "preempted"
	EventOverdue   EventKind = "overdue"
	EventMissed    EventKind = "missed"
	EventCompleted EventKind = "completed"
)

// Event is a job event as stored by the trace writers.
type Event struct {
	Tick int             `json:"tick"`
	Kind EventKind       `json:"kind"`
	Job  model.JobRecord `json:"job"`
}

// JobFilter selects the jobs a tracer cares about.
type JobFilter func(job model.JobRecord) bool

// TaskNamed selects the jobs of the named tasks.
func TaskNamed(names ...string) JobFilter {
	return func(job model.JobRecord) bool {
		for _, n := range names {
			if job.Task == n {
				return true
			}
		}

		return false
	}
}
