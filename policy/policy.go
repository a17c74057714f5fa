// Package policy provides the priority orderings used to pick the next job
// to run.
package policy

import (
	"cmp"
	"errors"
	"fmt"
	"strings"

	"github.com/sarchlab/rtsim/model"
)

// ErrUnknownPolicy is returned by ByName for unrecognized policy names.
var ErrUnknownPolicy = errors.New("unknown scheduling policy")

// A Policy ranks jobs. Compare returns a negative number if a should run
// before b, a positive number if b should run before a. Compare must only
// return 0 when a and b are the same job.
type Policy interface {
	Name() string
	Compare(a, b *model.Job) int
}

// TieBreak decides the order of jobs that a policy considers equally urgent.
type TieBreak int

// Tie-breaking rules. Both fall back to the release index, so that two jobs
// of the same task are still ordered.
const (
	// TieBreakByName prefers the lexicographically smaller task name.
	TieBreakByName TieBreak = iota
	// TieBreakByIndex prefers the task declared first.
	TieBreakByIndex
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakByName:
		return "name"
	case TieBreakByIndex:
		return "index"
	default:
		return fmt.Sprintf("TieBreak(%d)", int(t))
	}
}

// ParseTieBreak converts "name" or "index" into a TieBreak.
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name":
		return TieBreakByName, nil
	case "index", "order":
		return TieBreakByIndex, nil
	default:
		return 0, fmt.Errorf("unknown tie-break rule %q", s)
	}
}

func (t TieBreak) compare(a, b *model.Job) int {
	var c int

	switch t {
	case TieBreakByIndex:
		c = cmp.Compare(a.TaskIndex(), b.TaskIndex())
	default:
		c = strings.Compare(a.Task().Name, b.Task().Name)
	}

	if c != 0 {
		return c
	}

	return cmp.Compare(a.ReleaseIndex(), b.ReleaseIndex())
}

// An Option configures a policy.
type Option func(*options)

type options struct {
	tieBreak TieBreak
}

// WithTieBreak selects the tie-breaking rule.
func WithTieBreak(t TieBreak) Option {
	return func(o *options) {
		o.tieBreak = t
	}
}

func buildOptions(opts []Option) options {
	o := options{tieBreak: TieBreakByName}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// ByName creates a policy from its name. Accepted names are "edf",
// "earliest-deadline-first", "rm", and "rate-monotonic".
func ByName(name string, opts ...Option) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "edf", "earliest-deadline-first":
		return NewEDF(opts...), nil
	case "rm", "rate-monotonic":
		return NewRM(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Names lists the canonical policy names.
func Names() []string {
	return []string{"edf", "rm"}
}

// First returns the job that the policy ranks first. It returns nil if jobs
// is empty.
func First(p Policy, jobs []*model.Job) *model.Job {
	var best *model.Job

	for _, j := range jobs {
		if best == nil || p.Compare(j, best) < 0 {
			best = j
		}
	}

	return best
}
