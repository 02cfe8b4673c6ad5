package sched

import (
	"sync"
	"testing"
)

func TestTimeOrdering(t *testing.T) {
	q := NewQueue()
	q.Push(Event{Timestamp: 3.0, Kind: KindStep})
	q.Push(Event{Timestamp: 1.0, Kind: KindStep})
	q.Push(Event{Timestamp: 2.0, Kind: KindStep})

	events := q.Drain()
	if len(events) != 3 {
		t.Fatalf("drained %d events, want 3", len(events))
	}
	for i, want := range []float64{1.0, 2.0, 3.0} {
		if events[i].Timestamp != want {
			t.Errorf("event %d timestamp = %g, want %g", i, events[i].Timestamp, want)
		}
	}
}

func TestTieBreakPreservesPushOrder(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 5; i++ {
		q.Push(Event{Timestamp: 1.0, Kind: KindStep, Payload: i})
	}

	events := q.Drain()
	for i, e := range events {
		if e.Payload.(int) != i {
			t.Fatalf("tie at timestamp 1.0: got payload %v at index %d", e.Payload, i)
		}
	}
}

func TestPopDue(t *testing.T) {
	q := NewQueue()
	q.Push(Event{Timestamp: 1.0, Kind: KindStep})
	q.Push(Event{Timestamp: 5.0, Kind: KindStep})

	if _, ok := q.PopDue(0.5); ok {
		t.Error("nothing is due at t=0.5")
	}

	e, ok := q.PopDue(1.0)
	if !ok || e.Timestamp != 1.0 {
		t.Errorf("PopDue(1.0) = %v ok=%v, want the t=1.0 event", e, ok)
	}

	if _, ok := q.PopDue(4.9); ok {
		t.Error("t=5.0 event should not be due at 4.9")
	}
	if q.Len() != 1 {
		t.Errorf("Len = %d, want 1", q.Len())
	}
}

func TestPeekAndNextTime(t *testing.T) {
	q := NewQueue()
	if _, ok := q.Peek(); ok {
		t.Error("empty queue Peek should return false")
	}

	q.Push(Event{Timestamp: 2.5, Kind: KindTelemetry})
	e, ok := q.Peek()
	if !ok || e.Timestamp != 2.5 {
		t.Errorf("Peek = %v ok=%v, want t=2.5 event", e, ok)
	}
	if q.Len() != 1 {
		t.Error("Peek must not remove the event")
	}

	ts, ok := q.NextTime()
	if !ok || ts != 2.5 {
		t.Errorf("NextTime = %g ok=%v, want 2.5", ts, ok)
	}
}

func TestClear(t *testing.T) {
	q := NewQueue()
	q.Push(Event{Timestamp: 1.0})
	q.Push(Event{Timestamp: 2.0})
	q.Clear()

	if q.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", q.Len())
	}
}

func TestConcurrentPush(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(base float64) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(Event{Timestamp: base + float64(i)})
			}
		}(float64(w) * 1000)
	}
	wg.Wait()

	if q.Len() != 400 {
		t.Fatalf("Len = %d, want 400", q.Len())
	}

	events := q.Drain()
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp < events[i-1].Timestamp {
			t.Fatal("drained events out of time order")
		}
	}
}
