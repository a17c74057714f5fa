package engine

import (
	"github.com/sarchlab/rtsim/hooking"
	"github.com/sarchlab/rtsim/model"
	"github.com/sarchlab/rtsim/policy"
)

// Builder creates Engines.
type Builder struct {
	tasks       []model.Task
	horizon     int
	policy      policy.Policy
	preemptive  bool
	missPolicy  MissPolicy
	eventDriven bool
	hooks       []hooking.Hook
}

// MakeBuilder creates a builder with preemption on and misses dropped at
// the deadline.
func MakeBuilder() Builder {
	return Builder{
		preemptive: true,
		missPolicy: DropAtDeadline,
	}
}

// WithTasks sets the tasks to simulate. The slice is copied.
func (b Builder) WithTasks(tasks []model.Task) Builder {
	b.tasks = make([]model.Task, len(tasks))
	copy(b.tasks, tasks)

	return b
}

// WithHorizon sets the number of ticks to simulate.
func (b Builder) WithHorizon(horizon int) Builder {
	b.horizon = horizon
	return b
}

// WithPolicy sets the scheduling policy.
func (b Builder) WithPolicy(p policy.Policy) Builder {
	b.policy = p
	return b
}

// WithPreemption turns preemption on or off.
func (b Builder) WithPreemption(preemptive bool) Builder {
	b.preemptive = preemptive
	return b
}

// WithMissPolicy sets what happens to jobs that reach their deadline.
func (b Builder) WithMissPolicy(p MissPolicy) Builder {
	b.missPolicy = p
	return b
}

// WithEventDriven makes the engine step from event to event instead of tick
// by tick. The result is the same as long as the policy never reorders two
// jobs while one of them runs, which holds for EDF and RM.
func (b Builder) WithEventDriven(eventDriven bool) Builder {
	b.eventDriven = eventDriven
	return b
}

// WithHook registers a hook on the engine to build.
func (b Builder) WithHook(h hooking.Hook) Builder {
	hooks := make([]hooking.Hook, len(b.hooks), len(b.hooks)+1)
	copy(hooks, b.hooks)
	b.hooks = append(hooks, h)

	return b
}

// Build creates the engine. The configuration is validated when the engine
// runs.
func (b Builder) Build() *Engine {
	e := &Engine{
		HookableBase: hooking.NewHookableBase(),
		tasks:        b.tasks,
		horizon:      b.horizon,
		policy:       b.policy,
		preemptive:   b.preemptive,
		missPolicy:   b.missPolicy,
		eventDriven:  b.eventDriven,
		state:        NotStarted,
	}

	for _, h := range b.hooks {
		e.AcceptHook(h)
	}

	return e
}
