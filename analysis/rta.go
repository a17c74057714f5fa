package analysis

import (
	"sort"

	"github.com/sarchlab/rtsim/model"
	"github.com/sarchlab/rtsim/policy"
)

// ResponseTime is the worst-case response time of a task under RM.
type ResponseTime struct {
	Task        string `json:"task"`
	Priority    int    `json:"priority"`
	Time        int    `json:"time"`
	Deadline    int    `json:"deadline"`
	Schedulable bool   `json:"schedulable"`
}

// RMOrder returns the tasks sorted by RM priority, highest first. Ties on
// the period are broken the same way the RM policy breaks them: by name, or
// by declaration order.
func RMOrder(tasks []model.Task, tieBreak policy.TieBreak) []model.Task {
	ordered := make([]model.Task, len(tasks))
	copy(ordered, tasks)

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Period != ordered[j].Period {
			return ordered[i].Period < ordered[j].Period
		}

		if tieBreak == policy.TieBreakByIndex {
			return false
		}

		return ordered[i].Name < ordered[j].Name
	})

	return ordered
}

// ResponseTimes runs response-time analysis for every task under RM with
// all tasks released at tick 0. The iteration for a task stops as soon as
// its response time exceeds its deadline, in which case Time is the first
// value found past the deadline.
func ResponseTimes(
	tasks []model.Task,
	tieBreak policy.TieBreak,
) []ResponseTime {
	ordered := RMOrder(tasks, tieBreak)
	results := make([]ResponseTime, 0, len(ordered))

	for i, t := range ordered {
		r := responseTime(t, ordered[:i])

		results = append(results, ResponseTime{
			Task:        t.Name,
			Priority:    i,
			Time:        r,
			Deadline:    t.Deadline,
			Schedulable: r <= t.Deadline,
		})
	}

	return results
}

func responseTime(t model.Task, higher []model.Task) int {
	r := t.WCET
	for _, h := range higher {
		r += h.WCET
	}

	for r <= t.Deadline {
		next := t.WCET
		for _, h := range higher {
			next += ceilDiv(r, h.Period) * h.WCET
		}

		if next == r {
			return r
		}

		r = next
	}

	return r
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
