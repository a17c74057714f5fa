package engine

import (
	"github.com/sarchlab/rtsim/model"
)

// TaskStats summarizes the jobs of one task.
type TaskStats struct {
	Name              string `json:"name"`
	Released          int    `json:"released"`
	Completed         int    `json:"completed"`
	Missed            int    `json:"missed"`
	Open              int    `json:"open"`
	TotalLateness     int    `json:"total_lateness"`
	ExecutedTicks     int    `json:"executed_ticks"`
	Responded         int    `json:"responded"`
	MaxResponseTime   int    `json:"max_response_time"`
	TotalResponseTime int    `json:"total_response_time"`
}

// AverageResponseTime returns the mean response time of the jobs that ran to
// completion, late or not.
func (s TaskStats) AverageResponseTime() float64 {
	if s.Responded == 0 {
		return 0
	}

	return float64(s.TotalResponseTime) / float64(s.Responded)
}

// Statistics aggregates the outcome of all jobs of a simulation.
type Statistics struct {
	Released      int         `json:"released"`
	Completed     int         `json:"completed"`
	Missed        int         `json:"missed"`
	Open          int         `json:"open"`
	SuccessRate   float64     `json:"success_rate"`
	TotalLateness int         `json:"total_lateness"`
	Preemptions   int         `json:"preemptions"`
	BusyTicks     int         `json:"busy_ticks"`
	IdleTicks     int         `json:"idle_ticks"`
	Tasks         []TaskStats `json:"tasks"`
}

// Utilization returns the fraction of ticks in which a job ran.
func (s Statistics) Utilization() float64 {
	total := s.BusyTicks + s.IdleTicks
	if total == 0 {
		return 0
	}

	return float64(s.BusyTicks) / float64(total)
}

// Task returns the statistics of the named task.
func (s Statistics) Task(name string) (TaskStats, bool) {
	for _, t := range s.Tasks {
		if t.Name == name {
			return t, true
		}
	}

	return TaskStats{}, false
}

// Aggregate derives the statistics from the job records and the timeline.
// It keeps no state of its own.
func Aggregate(
	tasks []model.Task,
	jobs []model.JobRecord,
	timeline Timeline,
	preemptions int,
) Statistics {
	s := Statistics{
		Preemptions: preemptions,
		Tasks:       make([]TaskStats, len(tasks)),
	}

	byName := make(map[string]int, len(tasks))
	for i, t := range tasks {
		s.Tasks[i].Name = t.Name
		byName[t.Name] = i
	}

	for _, j := range jobs {
		ts := &s.Tasks[j.TaskIndex]
		s.Released++
		ts.Released++

		switch j.Outcome {
		case model.OutcomeCompleted:
			s.Completed++
			ts.Completed++
		case model.OutcomeMissed:
			s.Missed++
			ts.Missed++
			s.TotalLateness += j.Lateness
			ts.TotalLateness += j.Lateness
		default:
			s.Open++
			ts.Open++
		}

		if j.CompletionTime != nil {
			ts.Responded++
			ts.TotalResponseTime += j.ResponseTime
			ts.MaxResponseTime = max(ts.MaxResponseTime, j.ResponseTime)
		}
	}

	for _, slot := range timeline {
		if slot.IsIdle() {
			s.IdleTicks++
			continue
		}

		s.BusyTicks++
		if i, ok := byName[slot.Task]; ok {
			s.Tasks[i].ExecutedTicks++
		}
	}

	if s.Released > 0 {
		s.SuccessRate = float64(s.Completed) / float64(s.Released)
	}

	return s
}
