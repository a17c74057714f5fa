package tracing

import (
	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/model"
)

// BusyTimeTracer counts the ticks the processor spends on each task and the
// longest stretch of ticks without idling.
type BusyTimeTracer struct {
	busyTicks     map[string]int
	idleTicks     int
	currentPeriod int
	longestPeriod int
}

// NewBusyTimeTracer creates a new BusyTimeTracer.
func NewBusyTimeTracer() *BusyTimeTracer {
	return &BusyTimeTracer{
		busyTicks: make(map[string]int),
	}
}

// BusyTime returns the ticks spent on a task. An empty name returns the
// ticks spent on all tasks.
func (t *BusyTimeTracer) BusyTime(task string) int {
	if task != "" {
		return t.busyTicks[task]
	}

	total := 0
	for _, n := range t.busyTicks {
		total += n
	}

	return total
}

// IdleTime returns the number of idle ticks.
func (t *BusyTimeTracer) IdleTime() int {
	return t.idleTicks
}

// LongestBusyPeriod returns the longest run of consecutive busy ticks.
func (t *BusyTimeTracer) LongestBusyPeriod() int {
	return t.longestPeriod
}

// Tick accounts for one slot of the timeline.
func (t *BusyTimeTracer) Tick(slot engine.Slot) {
	if slot.IsIdle() {
		t.idleTicks++
		t.currentPeriod = 0

		return
	}

	t.busyTicks[slot.Task]++
	t.currentPeriod++

	if t.currentPeriod > t.longestPeriod {
		t.longestPeriod = t.currentPeriod
	}
}

// JobReleased does nothing.
func (t *BusyTimeTracer) JobReleased(_ int, _ model.JobRecord) {
	// Do nothing
}

// JobPreempted does nothing.
func (t *BusyTimeTracer) JobPreempted(_ int, _ model.JobRecord) {
	// Do nothing
}

// JobOverdue does nothing.
func (t *BusyTimeTracer) JobOverdue(_ int, _ model.JobRecord) {
	// Do nothing
}

// JobMissed does nothing.
func (t *BusyTimeTracer) JobMissed(_ int, _ model.JobRecord) {
	// Do nothing
}

// JobCompleted does nothing.
func (t *BusyTimeTracer) JobCompleted(_ int, _ model.JobRecord) {
	// Do nothing
}
