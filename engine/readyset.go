package engine

import (
	"fmt"

	"github.com/sarchlab/rtsim/model"
	"github.com/sarchlab/rtsim/policy"
)

type jobKey struct {
	taskIndex    int
	releaseIndex int
}

// jobArena owns every job created during a run. Jobs are never removed from
// the arena. The active list holds the arena positions of the jobs that are
// still Ready or Running, in release order.
type jobArena struct {
	jobs   []*model.Job
	index  map[jobKey]int
	active []int
}

func newJobArena() *jobArena {
	return &jobArena{
		index: make(map[jobKey]int),
	}
}

func (a *jobArena) add(j *model.Job) error {
	key := jobKey{taskIndex: j.TaskIndex(), releaseIndex: j.ReleaseIndex()}
	if _, found := a.index[key]; found {
		return fmt.Errorf("%w: job %s released twice", ErrEngineFault, j.ID())
	}

	a.index[key] = len(a.jobs)
	a.active = append(a.active, len(a.jobs))
	a.jobs = append(a.jobs, j)

	return nil
}

// activeJobs returns the jobs that are still Ready or Running.
func (a *jobArena) activeJobs() []*model.Job {
	jobs := make([]*model.Job, 0, len(a.active))
	for _, i := range a.active {
		jobs = append(jobs, a.jobs[i])
	}

	return jobs
}

// retire drops the jobs that are no longer active from the active list.
func (a *jobArena) retire() {
	kept := a.active[:0]
	for _, i := range a.active {
		if a.jobs[i].IsActive() {
			kept = append(kept, i)
		}
	}

	a.active = kept
}

func (a *jobArena) records() []model.JobRecord {
	records := make([]model.JobRecord, 0, len(a.jobs))
	for _, j := range a.jobs {
		records = append(records, j.Record())
	}

	return records
}

// readySet is the view of the active jobs that have been released by now.
type readySet struct {
	now  int
	jobs []*model.Job
}

func (a *jobArena) readySet(now int) readySet {
	rs := readySet{now: now}

	for _, j := range a.activeJobs() {
		if j.ReleaseTime() <= now {
			rs.jobs = append(rs.jobs, j)
		}
	}

	return rs
}

func (rs readySet) isEmpty() bool {
	return len(rs.jobs) == 0
}

// first returns the job the policy ranks first. Two distinct jobs that the
// policy cannot order are reported as an engine fault, since they would make
// the simulation depend on the order jobs are stored in.
func (rs readySet) first(p policy.Policy) (*model.Job, error) {
	best := policy.First(p, rs.jobs)

	for _, j := range rs.jobs {
		if j != best && p.Compare(j, best) == 0 {
			return nil, fmt.Errorf(
				"%w: policy %s cannot order jobs %s and %s at tick %d",
				ErrEngineFault, p.Name(), j.ID(), best.ID(), rs.now)
		}
	}

	return best, nil
}
