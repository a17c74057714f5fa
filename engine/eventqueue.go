package engine

import "container/heap"

type eventKind int

// Event kinds, in the order they are handled within a tick.
const (
	eventRelease eventKind = iota
	eventDeadline
	eventCompletion
)

// An event is a tick at which the job to run may change.
type event struct {
	time      int
	kind      eventKind
	taskIndex int
}

// eventQueue orders events by time, then kind, then task index.
type eventQueue struct {
	events eventHeap
}

func newEventQueue() *eventQueue {
	q := &eventQueue{events: make(eventHeap, 0)}
	heap.Init(&q.events)

	return q
}

func (q *eventQueue) Push(evt event) {
	heap.Push(&q.events, evt)
}

func (q *eventQueue) Pop() event {
	return heap.Pop(&q.events).(event)
}

func (q *eventQueue) Len() int {
	return q.events.Len()
}

// Peek returns the earliest event without removing it. The queue must not be
// empty.
func (q *eventQueue) Peek() event {
	return q.events[0]
}

type eventHeap []event

func (h eventHeap) Len() int {
	return len(h)
}

func (h eventHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}

	if h[i].kind != h[j].kind {
		return h[i].kind < h[j].kind
	}

	return h[i].taskIndex < h[j].taskIndex
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	evt := old[n-1]
	*h = old[0 : n-1]

	return evt
}
