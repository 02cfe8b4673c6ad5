package stepgen

import (
	"sync"
	"testing"

	"motionhost/pkg/errors"
)

func TestBufferCapacity(t *testing.T) {
	b, err := NewBuffer(3)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := b.Push(StepCommand{Axis: i, Steps: 1}); err != nil {
			t.Fatalf("Push %d: %v", i, err)
		}
	}

	// 4th push fails, length stays 3
	err = b.Push(StepCommand{Axis: 3, Steps: 1})
	if err == nil {
		t.Fatal("4th push should fail")
	}
	if !errors.IsBackpressure(err) {
		t.Errorf("expected backpressure error, got %v", err)
	}
	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3", b.Len())
	}
}

func TestBufferNextOrder(t *testing.T) {
	b, _ := NewBuffer(3)
	for i := 0; i < 3; i++ {
		b.Push(StepCommand{Axis: i, Steps: uint32(i + 1)})
	}

	for i := 0; i < 3; i++ {
		cmd, ok := b.Next()
		if !ok {
			t.Fatalf("Next %d returned no command", i)
		}
		if cmd.Axis != i {
			t.Errorf("Next %d axis = %d, want %d (FIFO order)", i, cmd.Axis, i)
		}
	}

	if _, ok := b.Next(); ok {
		t.Error("exhausted buffer should return ok=false")
	}
}

func TestBufferResetReplays(t *testing.T) {
	b, _ := NewBuffer(3)
	b.Push(StepCommand{Axis: 0, Steps: 7})
	b.Push(StepCommand{Axis: 1, Steps: 8})

	b.Next()
	b.Next()
	b.Reset()

	cmd, ok := b.Next()
	if !ok || cmd.Axis != 0 || cmd.Steps != 7 {
		t.Errorf("after Reset, Next = %v ok=%v, want first command replayed", cmd, ok)
	}
	if b.Len() != 2 {
		t.Errorf("Reset must not change Len, got %d", b.Len())
	}
}

func TestBufferCompactReclaimsReadEntries(t *testing.T) {
	b, _ := NewBuffer(3)
	b.Push(StepCommand{Axis: 0, Steps: 1})
	b.Push(StepCommand{Axis: 1, Steps: 2})
	b.Push(StepCommand{Axis: 2, Steps: 3})
	b.Next()
	b.Next()

	if got := b.Compact(); got != 2 {
		t.Fatalf("Compact = %d, want 2 reclaimed", got)
	}
	if b.Free() != 2 {
		t.Errorf("Free after Compact = %d, want 2", b.Free())
	}
	if b.Pending() != 1 {
		t.Errorf("Pending after Compact = %d, want 1", b.Pending())
	}

	// The unread command survives in order and is the replay window.
	b.Reset()
	cmd, ok := b.Next()
	if !ok || cmd.Axis != 2 || cmd.Steps != 3 {
		t.Errorf("Next after Compact+Reset = %v ok=%v, want the unread command", cmd, ok)
	}

	// Reclaimed slots accept new pushes; a drained buffer compacts to empty.
	if err := b.Push(StepCommand{Axis: 0, Steps: 4}); err != nil {
		t.Errorf("Push after Compact: %v", err)
	}
	b.Next()
	b.Compact()
	if b.Len() != 0 || b.Free() != 3 {
		t.Errorf("fully drained compact: Len=%d Free=%d, want 0 and 3", b.Len(), b.Free())
	}
}

func TestBufferClear(t *testing.T) {
	b, _ := NewBuffer(3)
	b.Push(StepCommand{Axis: 0, Steps: 1})
	b.Push(StepCommand{Axis: 1, Steps: 1})
	b.Clear()

	if b.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", b.Len())
	}
	if _, ok := b.Next(); ok {
		t.Error("Next after Clear should return ok=false")
	}

	// Cleared buffer accepts new pushes
	if err := b.Push(StepCommand{Axis: 2, Steps: 1}); err != nil {
		t.Errorf("Push after Clear: %v", err)
	}
}

func TestBufferPendingAndFree(t *testing.T) {
	b, _ := NewBuffer(4)
	b.Push(StepCommand{})
	b.Push(StepCommand{})
	b.Next()

	if b.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", b.Pending())
	}
	if b.Free() != 2 {
		t.Errorf("Free = %d, want 2", b.Free())
	}
}

func TestNewBufferRejectsCapacity(t *testing.T) {
	if _, err := NewBuffer(0); err == nil {
		t.Error("zero capacity should be rejected")
	}
}

func TestBufferConcurrentProducerConsumer(t *testing.T) {
	b, _ := NewBuffer(1024)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			for b.Push(StepCommand{Steps: uint32(i)}) != nil {
			}
		}
	}()

	consumed := 0
	go func() {
		defer wg.Done()
		for consumed < 1000 {
			if _, ok := b.Next(); ok {
				consumed++
			}
		}
	}()

	wg.Wait()
	if consumed != 1000 {
		t.Errorf("consumed %d commands, want 1000", consumed)
	}
}
