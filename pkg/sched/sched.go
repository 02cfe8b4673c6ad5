// Package sched provides the time-ordered event queue that carries
// scheduled step commands to the simulation/transport drain.
//
// The queue owns its synchronization; callers interact only through the
// message-passing style API and never see a lock.
package sched

import (
	"container/heap"
	"sync"
)

// Kind tags the event payload
type Kind int

const (
	// KindStep carries a stepgen.StepCommand payload
	KindStep Kind = iota

	// KindSegment carries a trajectory segment boundary marker
	KindSegment

	// KindTelemetry carries a stats snapshot
	KindTelemetry
)

// String returns the event kind name
func (k Kind) String() string {
	switch k {
	case KindStep:
		return "step"
	case KindSegment:
		return "segment"
	case KindTelemetry:
		return "telemetry"
	default:
		return "unknown"
	}
}

// Event is one scheduled item; ties on Timestamp preserve push order
type Event struct {
	Timestamp float64
	Kind      Kind
	Payload   interface{}

	seq uint64
}

type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Timestamp != h[j].Timestamp {
		return h[i].Timestamp < h[j].Timestamp
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Queue is an owning time-ordered event queue
type Queue struct {
	mu   sync.Mutex
	h    eventHeap
	next uint64
}

// NewQueue creates an empty event queue
func NewQueue() *Queue {
	return &Queue{}
}

// Push schedules an event
func (q *Queue) Push(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e.seq = q.next
	q.next++
	heap.Push(&q.h, e)
}

// Peek returns the earliest event without removing it
func (q *Queue) Peek() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.h) == 0 {
		return Event{}, false
	}
	return q.h[0], true
}

// PopDue removes and returns the earliest event if its timestamp is at or
// before now
func (q *Queue) PopDue(now float64) (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.h) == 0 || q.h[0].Timestamp > now {
		return Event{}, false
	}
	return heap.Pop(&q.h).(Event), true
}

// NextTime returns the timestamp of the earliest event
func (q *Queue) NextTime() (float64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.h) == 0 {
		return 0, false
	}
	return q.h[0].Timestamp, true
}

// Len returns the number of pending events
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}

// Drain removes and returns all events in time order
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Event, 0, len(q.h))
	for len(q.h) > 0 {
		out = append(out, heap.Pop(&q.h).(Event))
	}
	return out
}

// Clear discards all pending events
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.h = q.h[:0]
}
