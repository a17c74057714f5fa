package policy

import (
	"cmp"

	"github.com/sarchlab/rtsim/model"
)

// RM is the Rate Monotonic policy. Tasks with shorter periods have higher
// static priority. The priority of a job is the period of its task, which
// never changes during a simulation.
type RM struct {
	tieBreak TieBreak
}

// NewRM creates an RM policy.
func NewRM(opts ...Option) *RM {
	o := buildOptions(opts)
	return &RM{tieBreak: o.tieBreak}
}

// Name returns the display name of the policy.
func (p *RM) Name() string {
	return "Rate Monotonic (RM)"
}

// Compare orders jobs by the period of their tasks.
func (p *RM) Compare(a, b *model.Job) int {
	if c := cmp.Compare(a.Task().Period, b.Task().Period); c != 0 {
		return c
	}

	return p.tieBreak.compare(a, b)
}
