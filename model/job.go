package model

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned when a job is asked to move to a state
// that its transition table does not allow.
var ErrIllegalTransition = errors.New("illegal job state transition")

// JobState is the execution state of a job.
type JobState int

// The states a job can be in.
const (
	JobReady JobState = iota
	JobRunning
	JobCompleted
	JobMissed
)

func (s JobState) String() string {
	switch s {
	case JobReady:
		return "Ready"
	case JobRunning:
		return "Running"
	case JobCompleted:
		return "Completed"
	case JobMissed:
		return "Missed"
	default:
		return fmt.Sprintf("JobState(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s JobState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsActive tells if a job in this state still competes for the processor.
func (s JobState) IsActive() bool {
	return s == JobReady || s == JobRunning
}

var legalTransitions = map[JobState][]JobState{
	JobReady:   {JobRunning, JobMissed},
	JobRunning: {JobRunning, JobReady, JobCompleted, JobMissed},
}

func canTransit(from, to JobState) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}

	return false
}

// A Job is one released instance of a Task.
type Job struct {
	task         Task
	taskIndex    int
	releaseIndex int

	releaseTime      int
	absoluteDeadline int

	remaining      int
	state          JobState
	completionTime int
	resolvedAt     int
	overdue        bool
}

// NewJob creates the k-th job of a task. The task index is the position of
// the task in the simulated task list.
func NewJob(task Task, taskIndex, k int) *Job {
	return &Job{
		task:             task,
		taskIndex:        taskIndex,
		releaseIndex:     k,
		releaseTime:      task.ReleaseTime(k),
		absoluteDeadline: task.AbsoluteDeadline(k),
		remaining:        task.WCET,
		state:            JobReady,
		completionTime:   -1,
		resolvedAt:       -1,
	}
}

// ID returns a name that is unique within one simulation, e.g. "T1#3".
func (j *Job) ID() string {
	return fmt.Sprintf("%s#%d", j.task.Name, j.releaseIndex)
}

// Task returns the task that released the job.
func (j *Job) Task() Task {
	return j.task
}

// TaskIndex returns the position of the job's task in the task list.
func (j *Job) TaskIndex() int {
	return j.taskIndex
}

// ReleaseIndex returns k for the k-th release of the task.
func (j *Job) ReleaseIndex() int {
	return j.releaseIndex
}

// ReleaseTime returns the tick at which the job became ready.
func (j *Job) ReleaseTime() int {
	return j.releaseTime
}

// AbsoluteDeadline returns the tick by which the job must complete.
func (j *Job) AbsoluteDeadline() int {
	return j.absoluteDeadline
}

// Remaining returns the number of ticks of execution left.
func (j *Job) Remaining() int {
	return j.remaining
}

// State returns the current state of the job.
func (j *Job) State() JobState {
	return j.state
}

// IsActive tells if the job is Ready or Running.
func (j *Job) IsActive() bool {
	return j.state.IsActive()
}

// IsOverdue tells if the job has been kept alive past its deadline.
func (j *Job) IsOverdue() bool {
	return j.overdue
}

// CompletionTime returns the tick at which the job finished, if it did.
func (j *Job) CompletionTime() (int, bool) {
	return j.completionTime, j.completionTime >= 0
}

func (j *Job) transit(to JobState) error {
	if !canTransit(j.state, to) {
		return fmt.Errorf("%w: job %s from %s to %s",
			ErrIllegalTransition, j.ID(), j.state, to)
	}

	j.state = to

	return nil
}

// Execute runs the job for one tick.
func (j *Job) Execute() error {
	if j.remaining <= 0 {
		return fmt.Errorf("%w: job %s has no remaining work",
			ErrIllegalTransition, j.ID())
	}

	if err := j.transit(JobRunning); err != nil {
		return err
	}

	j.remaining--

	return nil
}

// Preempt moves a running job back to the ready state. Progress is kept.
func (j *Job) Preempt() error {
	if j.state != JobRunning {
		return fmt.Errorf("%w: job %s is %s, not Running",
			ErrIllegalTransition, j.ID(), j.state)
	}

	return j.transit(JobReady)
}

// Complete marks the job as finished at tick t. A job that finishes after
// its absolute deadline ends up Missed, with the completion time kept.
func (j *Job) Complete(t int) error {
	if j.remaining != 0 {
		return fmt.Errorf("%w: job %s completed with %d ticks remaining",
			ErrIllegalTransition, j.ID(), j.remaining)
	}

	to := JobCompleted
	if t > j.absoluteDeadline {
		to = JobMissed
	}

	if err := j.transit(to); err != nil {
		return err
	}

	j.completionTime = t
	j.resolvedAt = t

	return nil
}

// Miss drops the job at tick t because it cannot meet its deadline.
func (j *Job) Miss(t int) error {
	if err := j.transit(JobMissed); err != nil {
		return err
	}

	j.resolvedAt = t

	return nil
}

// MarkOverdue flags a job that stays active after its deadline has passed.
func (j *Job) MarkOverdue() {
	j.overdue = true
}

// Lateness returns how far past its absolute deadline the job was resolved.
// Jobs that are not resolved, or resolved in time, have zero lateness.
func (j *Job) Lateness() int {
	if j.resolvedAt < 0 || j.resolvedAt <= j.absoluteDeadline {
		return 0
	}

	return j.resolvedAt - j.absoluteDeadline
}

// Record takes a snapshot of the job.
func (j *Job) Record() JobRecord {
	r := JobRecord{
		ID:               j.ID(),
		Task:             j.task.Name,
		TaskIndex:        j.taskIndex,
		ReleaseIndex:     j.releaseIndex,
		ReleaseTime:      j.releaseTime,
		AbsoluteDeadline: j.absoluteDeadline,
		Remaining:        j.remaining,
		State:            j.state,
		Outcome:          outcomeOf(j.state),
		Lateness:         j.Lateness(),
		Overdue:          j.overdue,
	}

	if ct, ok := j.CompletionTime(); ok {
		r.CompletionTime = &ct
		r.ResponseTime = ct - j.releaseTime
	}

	return r
}
