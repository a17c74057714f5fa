// Package render formats simulation results as text.
package render

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/rtsim/analysis"
	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/model"
)

// DefaultTimelineLimit is the number of ticks Timeline prints by default.
const DefaultTimelineLimit = 50

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// Timeline prints the occupant of each tick, one line per tick. At most
// limit ticks are printed. A limit of 0 or less prints them all.
func Timeline(w io.Writer, tl engine.Timeline, limit int) {
	shown := tl
	if limit > 0 && len(tl) > limit {
		shown = tl[:limit]
	}

	fmt.Fprintln(w, "Execution Timeline:")

	for _, s := range shown {
		fmt.Fprintf(w, "Time %3d: %s\n", s.Tick, s.Occupant())
	}

	if len(shown) < len(tl) {
		fmt.Fprintf(w, "... (showing first %d of %d time units)\n",
			len(shown), len(tl))
	}
}

// Summary prints the overall and per-task statistics of a run.
func Summary(w io.Writer, r *engine.Result) error {
	st := r.Statistics

	fmt.Fprintln(w, "Simulation Results")

	tw := newTable(w)
	fmt.Fprintf(tw, "Algorithm\t%s\n", r.Label())
	fmt.Fprintf(tw, "Miss Policy\t%s\n", r.MissPolicy)
	fmt.Fprintf(tw, "Total Time\t%d\n", r.Horizon)
	fmt.Fprintf(tw, "Released Jobs\t%d\n", st.Released)
	fmt.Fprintf(tw, "Completed Jobs\t%d\n", st.Completed)
	fmt.Fprintf(tw, "Missed Deadlines\t%d\n", st.Missed)
	fmt.Fprintf(tw, "Open Jobs\t%d\n", st.Open)
	fmt.Fprintf(tw, "Success Rate\t%s\n", percent(st.SuccessRate))
	fmt.Fprintf(tw, "Total Lateness\t%d\n", st.TotalLateness)
	fmt.Fprintf(tw, "Preemptions\t%d\n", st.Preemptions)
	fmt.Fprintf(tw, "CPU Utilization\t%s\n", percent(st.Utilization()))

	if err := tw.Flush(); err != nil {
		return err
	}

	if len(st.Tasks) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Per-Task Statistics")

	tw = newTable(w)
	fmt.Fprintln(tw, "Task\tReleased\tCompleted\tMissed\tOpen\t"+
		"Total Lateness\tAvg Response\tMax Response")

	for _, ts := range st.Tasks {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%.2f\t%d\n",
			ts.Name, ts.Released, ts.Completed, ts.Missed, ts.Open,
			ts.TotalLateness, ts.AverageResponseTime(), ts.MaxResponseTime)
	}

	return tw.Flush()
}

// Comparison prints one row per run.
func Comparison(w io.Writer, results []*engine.Result) error {
	fmt.Fprintln(w, "Algorithm Comparison")

	tw := newTable(w)
	fmt.Fprintln(tw, "Algorithm\tSuccess Rate\tMissed Deadlines\t"+
		"Total Lateness\tPreemptions")

	for _, r := range results {
		st := r.Statistics
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n",
			r.Label(), percent(st.SuccessRate), st.Missed, st.TotalLateness,
			st.Preemptions)
	}

	return tw.Flush()
}

// TaskTable prints the parameters and utilization of each task.
func TaskTable(w io.Writer, tasks []model.Task) error {
	fmt.Fprintln(w, "Task Configuration")

	tw := newTable(w)
	fmt.Fprintln(tw, "Task\tWCET\tPeriod\tDeadline\tUtilization")

	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.3f\n",
			t.Name, t.WCET, t.Period, t.Deadline, t.Utilization())
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal Utilization: %.3f\n", analysis.Utilization(tasks))

	return nil
}

// Verdict prints the outcome of a schedulability test.
func Verdict(w io.Writer, v analysis.Verdict) error {
	var status string

	switch {
	case v.Schedulable:
		status = "SCHEDULABLE"
	case !v.Conclusive:
		status = "UNKNOWN"
	default:
		status = "NOT SCHEDULABLE"
	}

	fmt.Fprintf(w, "%s under %s (%s test)\n", status, v.Policy, v.Method)
	fmt.Fprintln(w, v.Message)

	if len(v.ResponseTimes) == 0 {
		return nil
	}

	fmt.Fprintln(w)

	tw := newTable(w)
	fmt.Fprintln(tw, "Priority\tTask\tResponse Time\tDeadline\tOK")

	for _, rt := range v.ResponseTimes {
		ok := "yes"
		if !rt.Schedulable {
			ok = "no"
		}

		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n",
			rt.Priority, rt.Task, rt.Time, rt.Deadline, ok)
	}

	return tw.Flush()
}
