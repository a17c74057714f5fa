// Package model defines the periodic tasks and the jobs they release.
package model

import (
	"errors"
	"fmt"
)

// ErrInvalidTask is wrapped by every error returned from Task.Validate.
var ErrInvalidTask = errors.New("invalid task")

// A Task is a periodic task. Tasks are immutable once a simulation starts.
type Task struct {
	Name     string `json:"name" yaml:"name"`
	WCET     int    `json:"wcet" yaml:"wcet"`
	Period   int    `json:"period" yaml:"period"`
	Deadline int    `json:"deadline" yaml:"deadline"`
}

// Validate checks that the task can be simulated.
func (t Task) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidTask)
	}

	if t.WCET < 1 {
		return fmt.Errorf("%w: task %s: wcet must be positive, got %d",
			ErrInvalidTask, t.Name, t.WCET)
	}

	if t.Period < 1 {
		return fmt.Errorf("%w: task %s: period must be positive, got %d",
			ErrInvalidTask, t.Name, t.Period)
	}

	if t.Deadline < 1 || t.Deadline > t.Period {
		return fmt.Errorf("%w: task %s: deadline %d outside [1, %d]",
			ErrInvalidTask, t.Name, t.Deadline, t.Period)
	}

	if t.WCET > t.Deadline {
		return fmt.Errorf("%w: task %s: wcet %d exceeds deadline %d",
			ErrInvalidTask, t.Name, t.WCET, t.Deadline)
	}

	return nil
}

// Utilization returns WCET/Period.
func (t Task) Utilization() float64 {
	return float64(t.WCET) / float64(t.Period)
}

// ReleaseTime returns the release tick of the k-th job of the task.
func (t Task) ReleaseTime(k int) int {
	return k * t.Period
}

// AbsoluteDeadline returns the absolute deadline of the k-th job.
func (t Task) AbsoluteDeadline(k int) int {
	return t.ReleaseTime(k) + t.Deadline
}

// ValidateTaskSet validates every task and checks that names are unique.
func ValidateTaskSet(tasks []Task) error {
	seen := make(map[string]bool, len(tasks))

	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return err
		}

		if seen[t.Name] {
			return fmt.Errorf("%w: duplicated task name %s",
				ErrInvalidTask, t.Name)
		}

		seen[t.Name] = true
	}

	return nil
}
