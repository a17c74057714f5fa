// Package engine simulates the dispatching of periodic tasks on a single
// processor, one tick at a time.
//
// Each tick runs five steps in a fixed order: release new jobs, detect
// deadline misses, select the job to run, execute it for one tick, and check
// whether it completed. The order resolves all the corner cases. For
// example, a job whose deadline coincides with the next release of its task
// is detected as missed after the new job is released but before anything
// is selected.
//
// An event-driven engine takes the same steps, but only at the ticks where
// a job is released, reaches its deadline, or may complete. The ticks in
// between are executed in one stretch.
package engine

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rtsim/hooking"
	"github.com/sarchlab/rtsim/model"
	"github.com/sarchlab/rtsim/policy"
)

// State is the lifecycle state of an Engine.
type State int

// Engine states. An engine runs once.
const (
	NotStarted State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Running:
		return "Running"
	case Finished:
		return "Finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// An Engine simulates one task set under one policy. Use a Builder to create
// it. An Engine can only be run once.
type Engine struct {
	*hooking.HookableBase

	tasks       []model.Task
	horizon     int
	policy      policy.Policy
	preemptive  bool
	missPolicy  MissPolicy
	eventDriven bool

	state       State
	now         int
	arena       *jobArena
	running     *model.Job
	timeline    Timeline
	preemptions int
	result      *Result
}

// Run simulates the tasks for horizon ticks. It is a pure function of its
// inputs; every call creates its own engine and jobs.
func Run(
	tasks []model.Task,
	horizon int,
	p policy.Policy,
	preemptive bool,
) (*Result, error) {
	e := MakeBuilder().
		WithTasks(tasks).
		WithHorizon(horizon).
		WithPolicy(p).
		WithPreemption(preemptive).
		Build()

	return e.Run()
}

// State returns the lifecycle state of the engine.
func (e *Engine) State() State {
	return e.state
}

// CurrentTime returns the tick being simulated.
func (e *Engine) CurrentTime() int {
	return e.now
}

// Horizon returns the number of ticks the engine simulates.
func (e *Engine) Horizon() int {
	return e.horizon
}

// EventDriven tells if the engine only steps at release, deadline, and
// completion ticks.
func (e *Engine) EventDriven() bool {
	return e.eventDriven
}

// Result returns the result of a finished run, or nil.
func (e *Engine) Result() *Result {
	return e.result
}

// Run simulates the full horizon.
func (e *Engine) Run() (*Result, error) {
	if e.state != NotStarted {
		return nil, fmt.Errorf("%w: engine is %s, it can only run once",
			ErrEngineFault, e.state)
	}

	if err := e.validate(); err != nil {
		return nil, err
	}

	e.state = Running
	e.arena = newJobArena()
	e.timeline = make(Timeline, 0, e.horizon)
	e.invoke(HookPosRunStart, nil)

	if err := e.simulate(); err != nil {
		return nil, err
	}

	e.state = Finished

	result, err := e.buildResult()
	if err != nil {
		return nil, err
	}

	e.result = result
	e.invoke(HookPosRunEnd, result)

	return result, nil
}

func (e *Engine) validate() error {
	if e.horizon < 1 {
		return fmt.Errorf("%w: horizon must be at least 1, got %d",
			ErrInvalidConfig, e.horizon)
	}

	if e.policy == nil {
		return fmt.Errorf("%w: no scheduling policy", ErrInvalidConfig)
	}

	if err := model.ValidateTaskSet(e.tasks); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

func (e *Engine) simulate() error {
	if e.eventDriven {
		return e.runEvents()
	}

	for t := 0; t < e.horizon; t++ {
		e.now = t

		if err := e.tick(); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) tick() error {
	if err := e.release(); err != nil {
		return err
	}

	if err := e.detectMisses(); err != nil {
		return err
	}

	job, err := e.selectJob()
	if err != nil {
		return err
	}

	if err := e.execute(job); err != nil {
		return err
	}

	if job != nil {
		if err := e.checkCompletion(job); err != nil {
			return err
		}
	}

	e.arena.retire()

	return nil
}

func (e *Engine) release() error {
	for i, task := range e.tasks {
		if e.now%task.Period != 0 {
			continue
		}

		if _, err := e.releaseJob(i); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) releaseJob(taskIndex int) (*model.Job, error) {
	task := e.tasks[taskIndex]

	job := model.NewJob(task, taskIndex, e.now/task.Period)
	if err := e.arena.add(job); err != nil {
		return nil, err
	}

	e.invoke(HookPosJobRelease, job.Record())

	return job, nil
}

func (e *Engine) detectMisses() error {
	for _, job := range e.arena.activeJobs() {
		deadline := job.AbsoluteDeadline()

		if e.missPolicy == ContinueAfterMiss {
			if deadline == e.now && !job.IsOverdue() {
				job.MarkOverdue()
				e.invoke(HookPosJobOverdue, job.Record())
			}

			continue
		}

		if deadline < e.now {
			return fmt.Errorf("%w: job %s is still active at tick %d, "+
				"after its deadline %d", ErrEngineFault, job.ID(), e.now, deadline)
		}

		if deadline != e.now {
			continue
		}

		if err := job.Miss(e.now); err != nil {
			return e.fault(err)
		}

		if job == e.running {
			e.running = nil
		}

		e.invoke(HookPosJobMiss, job.Record())
	}

	e.arena.retire()

	return nil
}

func (e *Engine) selectJob() (*model.Job, error) {
	if !e.preemptive && e.running != nil &&
		e.running.IsActive() && e.running.Remaining() > 0 {
		return e.running, nil
	}

	rs := e.arena.readySet(e.now)
	if rs.isEmpty() {
		return nil, nil
	}

	next, err := rs.first(e.policy)
	if err != nil {
		return nil, err
	}

	if e.running != nil && e.running != next && e.running.IsActive() {
		if err := e.running.Preempt(); err != nil {
			return nil, e.fault(err)
		}

		e.preemptions++
		e.invoke(HookPosJobPreempt, e.running.Record())
	}

	return next, nil
}

func (e *Engine) execute(job *model.Job) error {
	slot := Slot{Tick: e.now}

	if job != nil {
		if err := job.Execute(); err != nil {
			return e.fault(err)
		}

		slot.Task = job.Task().Name
	}

	e.running = job
	e.timeline = append(e.timeline, slot)
	e.invoke(HookPosTickEnd, slot)

	return nil
}

func (e *Engine) checkCompletion(job *model.Job) error {
	if job.Remaining() > 0 {
		return nil
	}

	if err := job.Complete(e.now + 1); err != nil {
		return e.fault(err)
	}

	e.running = nil

	if job.State() == model.JobMissed {
		e.invoke(HookPosJobMiss, job.Record())
		return nil
	}

	e.invoke(HookPosJobComplete, job.Record())

	return nil
}

func (e *Engine) buildResult() (*Result, error) {
	jobs := e.arena.records()

	tasks := make([]model.Task, len(e.tasks))
	copy(tasks, e.tasks)

	r := &Result{
		Policy:     e.policy.Name(),
		Preemptive: e.preemptive,
		MissPolicy: e.missPolicy,
		Horizon:    e.horizon,
		Tasks:      tasks,
		Timeline:   e.timeline,
		Statistics: Aggregate(tasks, jobs, e.timeline, e.preemptions),
		Jobs:       jobs,
	}

	if err := r.Reconcile(); err != nil {
		return nil, err
	}

	return r, nil
}

func (e *Engine) fault(err error) error {
	if errors.Is(err, ErrEngineFault) {
		return err
	}

	return fmt.Errorf("%w: tick %d: %w", ErrEngineFault, e.now, err)
}

func (e *Engine) invoke(pos *hooking.HookPos, item any) {
	if e.NumHooks() == 0 {
		return
	}

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    pos,
		Now:    e.now,
		Item:   item,
	})
}
