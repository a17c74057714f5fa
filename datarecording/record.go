package datarecording

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/xid"

	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/model"
)

// Tables written by RecordResult.
const (
	RunsTable     = "runs"
	TasksTable    = "tasks"
	JobsTable     = "jobs"
	TimelineTable = "timeline"
)

// RunRow is one row of the runs table.
type RunRow struct {
	RunID         string `rtsim:"index"`
	Policy        string
	Preemptive    bool
	MissPolicy    string
	Horizon       int
	Released      int
	Completed     int
	Missed        int
	Open          int
	SuccessRate   float64
	TotalLateness int
	Preemptions   int
	BusyTicks     int
	IdleTicks     int
}

// TaskRow is one row of the tasks table.
type TaskRow struct {
	RunID     string `rtsim:"index"`
	TaskIndex int
	Name      string
	WCET      int
	Period    int
	Deadline  int
}

// JobRow is one row of the jobs table. CompletionTime is -1 for jobs that
// did not run to completion.
type JobRow struct {
	RunID            string `rtsim:"index"`
	JobID            string
	Task             string `rtsim:"index"`
	TaskIndex        int
	ReleaseIndex     int
	ReleaseTime      int
	AbsoluteDeadline int
	CompletionTime   int
	Remaining        int
	State            string
	Outcome          string
	Lateness         int
	ResponseTime     int
	Overdue          bool
}

// SlotRow is one row of the timeline table. Task is empty for idle ticks.
type SlotRow struct {
	RunID string `rtsim:"index"`
	Tick  int
	Task  string
}

// NewRunID generates a unique run ID.
func NewRunID() string {
	return xid.New().String()
}

// RecordResult writes a simulation result into the recorder, creating the
// tables on first use. The rows are buffered until the recorder flushes.
func RecordResult(
	recorder DataRecorder,
	runID string,
	result *engine.Result,
) {
	ensureResultTables(recorder)

	st := result.Statistics
	recorder.InsertData(RunsTable, RunRow{
		RunID:         runID,
		Policy:        result.Policy,
		Preemptive:    result.Preemptive,
		MissPolicy:    result.MissPolicy.String(),
		Horizon:       result.Horizon,
		Released:      st.Released,
		Completed:     st.Completed,
		Missed:        st.Missed,
		Open:          st.Open,
		SuccessRate:   st.SuccessRate,
		TotalLateness: st.TotalLateness,
		Preemptions:   st.Preemptions,
		BusyTicks:     st.BusyTicks,
		IdleTicks:     st.IdleTicks,
	})

	for i, t := range result.Tasks {
		recorder.InsertData(TasksTable, TaskRow{
			RunID:     runID,
			TaskIndex: i,
			Name:      t.Name,
			WCET:      t.WCET,
			Period:    t.Period,
			Deadline:  t.Deadline,
		})
	}

	for _, j := range result.Jobs {
		completion := -1
		if j.CompletionTime != nil {
			completion = *j.CompletionTime
		}

		recorder.InsertData(JobsTable, JobRow{
			RunID:            runID,
			JobID:            j.ID,
			Task:             j.Task,
			TaskIndex:        j.TaskIndex,
			ReleaseIndex:     j.ReleaseIndex,
			ReleaseTime:      j.ReleaseTime,
			AbsoluteDeadline: j.AbsoluteDeadline,
			CompletionTime:   completion,
			Remaining:        j.Remaining,
			State:            j.State.String(),
			Outcome:          string(j.Outcome),
			Lateness:         j.Lateness,
			ResponseTime:     j.ResponseTime,
			Overdue:          j.Overdue,
		})
	}

	for _, s := range result.Timeline {
		recorder.InsertData(TimelineTable, SlotRow{
			RunID: runID,
			Tick:  s.Tick,
			Task:  s.Task,
		})
	}
}

func ensureResultTables(recorder DataRecorder) {
	tables := recorder.ListTables()

	samples := []struct {
		name   string
		sample any
	}{
		{RunsTable, RunRow{}},
		{TasksTable, TaskRow{}},
		{JobsTable, JobRow{}},
		{TimelineTable, SlotRow{}},
	}

	for _, s := range samples {
		if !slices.Contains(tables, s.name) {
			recorder.CreateTable(s.name, s.sample)
		}
	}
}

// MapResultTables maps the tables written by RecordResult on the reader.
func MapResultTables(reader DataReader) {
	reader.MapTable(RunsTable, RunRow{})
	reader.MapTable(TasksTable, TaskRow{})
	reader.MapTable(JobsTable, JobRow{})
	reader.MapTable(TimelineTable, SlotRow{})
	reader.MapTable(ExecInfoTable, ExecInfo{})
}

// A StoredRun is a simulation result read back from a database.
type StoredRun struct {
	ID     string
	Result *engine.Result
}

// LoadResults rebuilds every result recorded by RecordResult, in the order
// they were recorded. The statistics are derived again from the jobs and the
// timeline, and checked against the recorded counts.
func LoadResults(ctx context.Context, reader DataReader) ([]StoredRun, error) {
	MapResultTables(reader)

	rows, _, err := reader.Query(ctx, RunsTable, QueryParams{OrderBy: "rowid"})
	if err != nil {
		return nil, err
	}

	runs := make([]StoredRun, 0, len(rows))

	for _, row := range rows {
		run := row.(*RunRow)

		result, err := loadResult(ctx, reader, run)
		if err != nil {
			return nil, fmt.Errorf("loading run %s: %w", run.RunID, err)
		}

		runs = append(runs, StoredRun{ID: run.RunID, Result: result})
	}

	return runs, nil
}

func loadResult(
	ctx context.Context,
	reader DataReader,
	run *RunRow,
) (*engine.Result, error) {
	missPolicy, err := engine.ParseMissPolicy(run.MissPolicy)
	if err != nil {
		return nil, err
	}

	byRun := func(orderBy string) QueryParams {
		return QueryParams{
			Where:   "RunID = ?",
			Args:    []any{run.RunID},
			OrderBy: orderBy,
		}
	}

	taskRows, _, err := reader.Query(ctx, TasksTable, byRun("TaskIndex"))
	if err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(taskRows))
	for _, row := range taskRows {
		t := row.(*TaskRow)
		tasks = append(tasks, model.Task{
			Name:     t.Name,
			WCET:     t.WCET,
			Period:   t.Period,
			Deadline: t.Deadline,
		})
	}

	jobRows, _, err := reader.Query(ctx, JobsTable, byRun("rowid"))
	if err != nil {
		return nil, err
	}

	jobs := make([]model.JobRecord, 0, len(jobRows))
	for _, row := range jobRows {
		job, err := jobRecordOf(row.(*JobRow))
		if err != nil {
			return nil, err
		}

		if job.TaskIndex < 0 || job.TaskIndex >= len(tasks) {
			return nil, fmt.Errorf("job %s: no task at index %d",
				job.ID, job.TaskIndex)
		}

		jobs = append(jobs, job)
	}

	slotRows, _, err := reader.Query(ctx, TimelineTable, byRun("Tick"))
	if err != nil {
		return nil, err
	}

	timeline := make(engine.Timeline, 0, len(slotRows))
	for _, row := range slotRows {
		s := row.(*SlotRow)
		timeline = append(timeline, engine.Slot{Tick: s.Tick, Task: s.Task})
	}

	result := &engine.Result{
		Policy:     run.Policy,
		Preemptive: run.Preemptive,
		MissPolicy: missPolicy,
		Horizon:    run.Horizon,
		Tasks:      tasks,
		Timeline:   timeline,
		Statistics: engine.Aggregate(tasks, jobs, timeline, run.Preemptions),
		Jobs:       jobs,
	}

	if err := result.Reconcile(); err != nil {
		return nil, err
	}

	st := result.Statistics
	if st.Completed != run.Completed || st.Missed != run.Missed ||
		st.TotalLateness != run.TotalLateness {
		return nil, fmt.Errorf("job rows do not match the recorded statistics")
	}

	return result, nil
}

var jobStates = []model.JobState{
	model.JobReady,
	model.JobRunning,
	model.JobCompleted,
	model.JobMissed,
}

func jobRecordOf(row *JobRow) (model.JobRecord, error) {
	i := slices.IndexFunc(jobStates, func(s model.JobState) bool {
		return s.String() == row.State
	})
	if i < 0 {
		return model.JobRecord{}, fmt.Errorf("job %s: unknown state %q",
			row.JobID, row.State)
	}

	job := model.JobRecord{
		ID:               row.JobID,
		Task:             row.Task,
		TaskIndex:        row.TaskIndex,
		ReleaseIndex:     row.ReleaseIndex,
		ReleaseTime:      row.ReleaseTime,
		AbsoluteDeadline: row.AbsoluteDeadline,
		Remaining:        row.Remaining,
		State:            jobStates[i],
		Outcome:          model.Outcome(row.Outcome),
		Lateness:         row.Lateness,
		ResponseTime:     row.ResponseTime,
		Overdue:          row.Overdue,
	}

	if row.CompletionTime >= 0 {
		completion := row.CompletionTime
		job.CompletionTime = &completion
	}

	return job, nil
}
