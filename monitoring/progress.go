package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/hooking"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

type progressSnapshot struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

func (b *ProgressBar) snapshot() progressSnapshot {
	b.Lock()
	defer b.Unlock()

	return progressSnapshot{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		Total:      b.Total,
		Finished:   b.Finished,
		InProgress: b.InProgress,
	}
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

// ProgressTracker is a hook that shows the progress of an engine run as a
// progress bar, one step per tick. When the run ends, the bar is removed and
// the result is registered with the monitor under the run ID.
type ProgressTracker struct {
	monitor *Monitor
	runID   string
	name    string
	bar     *ProgressBar
}

// NewProgressTracker creates a tracker that reports to the monitor.
func NewProgressTracker(m *Monitor, runID, name string) *ProgressTracker {
	return &ProgressTracker{
		monitor: m,
		runID:   runID,
		name:    name,
	}
}

// Bar returns the progress bar of the current run, or nil before the run
// starts.
func (t *ProgressTracker) Bar() *ProgressBar {
	return t.bar
}

// Func updates the progress bar.
func (t *ProgressTracker) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case engine.HookPosRunStart:
		var total uint64
		if e, ok := ctx.Domain.(*engine.Engine); ok {
			total = uint64(e.Horizon())
		}

		t.bar = t.monitor.CreateProgressBar(t.name, total)
		t.bar.IncrementInProgress(1)
	case engine.HookPosTickEnd:
		if t.bar != nil {
			t.bar.MoveInProgressToFinished(1)
			t.bar.IncrementInProgress(1)
		}
	case engine.HookPosRunEnd:
		if t.bar != nil {
			t.bar.Lock()
			t.bar.InProgress = 0
			t.bar.Unlock()
			t.monitor.CompleteProgressBar(t.bar)
		}

		if result, ok := ctx.Item.(*engine.Result); ok {
			t.monitor.RegisterResult(t.runID, result)
		}
	}
}
