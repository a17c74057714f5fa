package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/model"
)

// Gantt chart symbols.
const (
	GanttRun      = '#'
	GanttWait     = '.'
	GanttRelease  = 'R'
	GanttDeadline = 'D'
	GanttBoth     = '*'
	GanttMiss     = '!'
)

// Gantt draws the result as a text chart with one row per task and a row
// for the idle processor. Under each task row, a marker row shows releases,
// deadlines and missed deadlines. At most limit ticks are drawn. A limit of
// 0 or less draws them all.
func Gantt(w io.Writer, r *engine.Result, limit int) {
	ticks := len(r.Timeline)
	if limit > 0 && ticks > limit {
		ticks = limit
	}

	labelWidth := len("IDLE")
	for _, t := range r.Tasks {
		labelWidth = max(labelWidth, len(t.Name))
	}

	pad := strings.Repeat(" ", labelWidth)

	fmt.Fprintf(w, "Gantt Chart - %s\n", r.Label())
	fmt.Fprintf(w, "%s  %s\n", pad, rulerNumbers(ticks))
	fmt.Fprintf(w, "%s  %s\n", pad, ruler(ticks))

	for _, t := range r.Tasks {
		row := make([]byte, ticks)
		for i := range row {
			row[i] = GanttWait
			if r.Timeline[i].Task == t.Name {
				row[i] = GanttRun
			}
		}

		fmt.Fprintf(w, "%-*s |%s|\n", labelWidth, t.Name, row)
		fmt.Fprintf(w, "%s  %s\n", pad, markers(t, r.Jobs, ticks))
	}

	idle := make([]byte, ticks)
	for i := range idle {
		idle[i] = ' '
		if r.Timeline[i].IsIdle() {
			idle[i] = GanttRun
		}
	}

	fmt.Fprintf(w, "%-*s |%s|\n", labelWidth, engine.IdleLabel, idle)

	if ticks < len(r.Timeline) {
		fmt.Fprintf(w, "... (showing first %d of %d time units)\n",
			ticks, len(r.Timeline))
	}

	fmt.Fprintf(w, "%c run  %c release  %c deadline  %c both  %c missed\n",
		GanttRun, GanttRelease, GanttDeadline, GanttBoth, GanttMiss)
}

func ruler(ticks int) string {
	var b strings.Builder

	for i := 0; i < ticks; i++ {
		switch {
		case i%10 == 0:
			b.WriteByte('|')
		case i%5 == 0:
			b.WriteByte('+')
		default:
			b.WriteByte('-')
		}
	}

	return b.String()
}

func rulerNumbers(ticks int) string {
	line := []byte(strings.Repeat(" ", ticks))

	for i := 0; i < ticks; i += 10 {
		label := fmt.Sprint(i)
		if i+len(label) > ticks {
			break
		}

		copy(line[i:], label)
	}

	return strings.TrimRight(string(line), " ")
}

func markers(t model.Task, jobs []model.JobRecord, ticks int) string {
	row := []byte(strings.Repeat(" ", ticks))

	for i := 0; i < ticks; i++ {
		if i%t.Period == 0 {
			row[i] = GanttRelease
		}
	}

	for _, j := range jobs {
		if j.Task != t.Name || j.AbsoluteDeadline >= ticks {
			continue
		}

		d := j.AbsoluteDeadline

		switch {
		case j.Outcome == model.OutcomeMissed:
			row[d] = GanttMiss
		case row[d] == GanttRelease:
			row[d] = GanttBoth
		default:
			row[d] = GanttDeadline
		}
	}

	return strings.TrimRight(string(row), " ")
}
