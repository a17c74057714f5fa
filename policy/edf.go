package policy

import (
	"cmp"

	"github.com/sarchlab/rtsim/model"
)

// EDF is the Earliest Deadline First policy. The job with the soonest
// absolute deadline runs first.
type EDF struct {
	tieBreak TieBreak
}

// NewEDF creates an EDF policy.
func NewEDF(opts ...Option) *EDF {
	o := buildOptions(opts)
	return &EDF{tieBreak: o.tieBreak}
}

// Name returns the display name of the policy.
func (p *EDF) Name() string {
	return "Earliest Deadline First (EDF)"
}

// Compare orders jobs by absolute deadline.
func (p *EDF) Compare(a, b *model.Job) int {
	if c := cmp.Compare(a.AbsoluteDeadline(), b.AbsoluteDeadline()); c != 0 {
		return c
	}

	return p.tieBreak.compare(a, b)
}
