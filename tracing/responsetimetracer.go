package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/model"
)

type responseTimes struct {
	count   uint64
	average float64
	max     int
}

// ResponseTimeTracer collects the response times of the jobs that run to
// completion, including those that complete after their deadline.
type ResponseTimeTracer struct {
	filter JobFilter
	lock   sync.Mutex
	tasks  map[string]*responseTimes
}

// NewResponseTimeTracer creates a new ResponseTimeTracer. A nil filter
// selects all jobs.
func NewResponseTimeTracer(filter JobFilter) *ResponseTimeTracer {
	return &ResponseTimeTracer{
		filter: filter,
		tasks:  make(map[string]*responseTimes),
	}
}

// Tasks returns the names of the tasks with at least one finished job.
func (t *ResponseTimeTracer) Tasks() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	names := make([]string, 0, len(t.tasks))
	for name := range t.tasks {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// AverageTime returns the mean response time of the jobs of a task.
func (t *ResponseTimeTracer) AverageTime(task string) float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if rt, ok := t.tasks[task]; ok {
		return rt.average
	}

	return 0
}

// MaxTime returns the worst response time of the jobs of a task.
func (t *ResponseTimeTracer) MaxTime(task string) int {
	t.lock.Lock()
	defer t.lock.Unlock()

	if rt, ok := t.tasks[task]; ok {
		return rt.max
	}

	return 0
}

// TotalCount returns the number of finished jobs of a task.
func (t *ResponseTimeTracer) TotalCount(task string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if rt, ok := t.tasks[task]; ok {
		return rt.count
	}

	return 0
}

func (t *ResponseTimeTracer) finish(job model.JobRecord) {
	if job.CompletionTime == nil {
		return
	}

	if t.filter != nil && !t.filter(job) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	rt, ok := t.tasks[job.Task]
	if !ok {
		rt = &responseTimes{}
		t.tasks[job.Task] = rt
	}

	rt.average = (rt.average*float64(rt.count) + float64(job.ResponseTime)) /
		float64(rt.count+1)
	rt.count++

	if job.ResponseTime > rt.max {
		rt.max = job.ResponseTime
	}
}

// JobReleased does nothing.
func (t *ResponseTimeTracer) JobReleased(_ int, _ model.JobRecord) {
	// Do nothing
}

// JobPreempted does nothing.
func (t *ResponseTimeTracer) JobPreempted(_ int, _ model.JobRecord) {
	// Do nothing
}

// JobOverdue does nothing.
func (t *ResponseTimeTracer) JobOverdue(_ int, _ model.JobRecord) {
	// Do nothing
}

// JobMissed records the response time of jobs that completed late.
func (t *ResponseTimeTracer) JobMissed(_ int, job model.JobRecord) {
	t.finish(job)
}

// JobCompleted records the response time of the job.
func (t *ResponseTimeTracer) JobCompleted(_ int, job model.JobRecord) {
	t.finish(job)
}

// Tick does nothing.
func (t *ResponseTimeTracer) Tick(_ engine.Slot) {
	// Do nothing
}
