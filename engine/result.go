package engine

import (
	"fmt"

	"github.com/sarchlab/rtsim/model"
)

// IdleLabel is how an idle slot is displayed.
const IdleLabel = "IDLE"

// A Slot records what the processor did during [Tick, Tick+1). An empty Task
// means the processor was idle.
type Slot struct {
	Tick int    `json:"tick"`
	Task string `json:"task,omitempty"`
}

// IsIdle tells if no job ran during the slot.
func (s Slot) IsIdle() bool {
	return s.Task == ""
}

// Occupant returns the task name, or IdleLabel for idle slots.
func (s Slot) Occupant() string {
	if s.IsIdle() {
		return IdleLabel
	}

	return s.Task
}

// Timeline is the per-tick record of a simulation, ordered by tick.
type Timeline []Slot

// Result is everything a simulation produces.
type Result struct {
	Policy     string            `json:"policy"`
	Preemptive bool              `json:"preemptive"`
	MissPolicy MissPolicy        `json:"miss_policy"`
	Horizon    int               `json:"horizon"`
	Tasks      []model.Task      `json:"tasks"`
	Timeline   Timeline          `json:"timeline"`
	Statistics Statistics        `json:"statistics"`
	Jobs       []model.JobRecord `json:"jobs"`
}

// Mode returns "Preemptive" or "Non-preemptive".
func (r *Result) Mode() string {
	if r.Preemptive {
		return "Preemptive"
	}

	return "Non-preemptive"
}

// Label names the run, e.g. "Rate Monotonic (RM) (Non-preemptive)".
func (r *Result) Label() string {
	return fmt.Sprintf("%s (%s)", r.Policy, r.Mode())
}

// Reconcile checks that the timeline has exactly one slot per tick and that
// every released job is accounted for as completed, missed, or open.
func (r *Result) Reconcile() error {
	if len(r.Timeline) != r.Horizon {
		return fmt.Errorf("%w: timeline has %d slots for a horizon of %d",
			ErrEngineFault, len(r.Timeline), r.Horizon)
	}

	for i, s := range r.Timeline {
		if s.Tick != i {
			return fmt.Errorf("%w: timeline slot %d is for tick %d",
				ErrEngineFault, i, s.Tick)
		}
	}

	st := r.Statistics
	if st.Released != st.Completed+st.Missed+st.Open {
		return fmt.Errorf(
			"%w: %d released jobs but %d completed, %d missed, %d open",
			ErrEngineFault, st.Released, st.Completed, st.Missed, st.Open)
	}

	if st.Released != len(r.Jobs) {
		return fmt.Errorf("%w: %d released jobs but %d job records",
			ErrEngineFault, st.Released, len(r.Jobs))
	}

	return nil
}
