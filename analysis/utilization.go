// Package analysis answers whether a task set is schedulable without
// simulating it.
package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/sarchlab/rtsim/model"
)

// ErrEmptyTaskSet is returned when an analysis needs at least one task.
var ErrEmptyTaskSet = errors.New("empty task set")

// ErrHyperperiodOverflow is returned when the hyperperiod does not fit in an
// int.
var ErrHyperperiodOverflow = errors.New("hyperperiod overflows")

const epsilon = 1e-9

// Utilization returns the sum of WCET/Period over the tasks.
func Utilization(tasks []model.Task) float64 {
	u := 0.0
	for _, t := range tasks {
		u += t.Utilization()
	}

	return u
}

// Density returns the sum of WCET/Deadline over the tasks.
func Density(tasks []model.Task) float64 {
	d := 0.0
	for _, t := range tasks {
		d += float64(t.WCET) / float64(t.Deadline)
	}

	return d
}

// LiuLaylandBound returns n(2^(1/n) - 1), the utilization below which n
// tasks with implicit deadlines are always schedulable under RM.
func LiuLaylandBound(n int) float64 {
	if n <= 0 {
		return 0
	}

	fn := float64(n)

	return fn * (math.Pow(2, 1/fn) - 1)
}

// Hyperperiod returns the least common multiple of the task periods.
func Hyperperiod(tasks []model.Task) (int, error) {
	if len(tasks) == 0 {
		return 0, ErrEmptyTaskSet
	}

	h := 1
	for _, t := range tasks {
		if t.Period < 1 {
			return 0, fmt.Errorf("%w: task %s: period %d",
				model.ErrInvalidTask, t.Name, t.Period)
		}

		g := gcd(h, t.Period)
		step := t.Period / g

		if h > math.MaxInt/step {
			return 0, fmt.Errorf("%w: lcm(%d, %d)",
				ErrHyperperiodOverflow, h, t.Period)
		}

		h *= step
	}

	return h, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}

	return a
}

func hasImplicitDeadlines(tasks []model.Task) bool {
	for _, t := range tasks {
		if t.Deadline != t.Period {
			return false
		}
	}

	return true
}
