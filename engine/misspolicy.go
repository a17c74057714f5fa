package engine

import (
	"fmt"
	"strings"
)

// MissPolicy decides what happens to a job that reaches its deadline with
// work left.
type MissPolicy int

const (
	// DropAtDeadline marks the job as missed at its deadline tick and drops
	// it. The lateness of such a job is always zero.
	DropAtDeadline MissPolicy = iota

	// ContinueAfterMiss keeps the job competing for the processor after its
	// deadline. The job is counted as missed when it completes, with a
	// lateness of its completion time minus its absolute deadline.
	ContinueAfterMiss
)

func (p MissPolicy) String() string {
	switch p {
	case DropAtDeadline:
		return "drop"
	case ContinueAfterMiss:
		return "continue"
	default:
		return fmt.Sprintf("MissPolicy(%d)", int(p))
	}
}

// MarshalText encodes the miss policy by name.
func (p MissPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ParseMissPolicy converts "drop" or "continue" into a MissPolicy.
func ParseMissPolicy(s string) (MissPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop", "drop-at-deadline":
		return DropAtDeadline, nil
	case "continue", "continue-after-miss":
		return ContinueAfterMiss, nil
	default:
		return 0, fmt.Errorf("unknown miss policy %q", s)
	}
}
