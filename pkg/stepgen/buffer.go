// Bounded step command buffer
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package stepgen

import (
	"sync"

	"motionhost/pkg/errors"
)

// Buffer is a fixed-capacity FIFO of StepCommand shared between the
// planning path (producer) and the transport drain (consumer). Push
// fails without blocking once full; that failure is the backpressure
// signal for the controller.
type Buffer struct {
	mu       sync.Mutex
	cmds     []StepCommand
	capacity int
	cursor   int
}

// NewBuffer creates a buffer holding at most capacity commands
func NewBuffer(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, errors.InvalidParametersError("step buffer", "capacity must be positive")
	}
	return &Buffer{
		cmds:     make([]StepCommand, 0, capacity),
		capacity: capacity,
	}, nil
}

// Capacity returns the fixed capacity
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Push appends a command. It never blocks; at capacity it returns a
// QUEUE_FULL error and the buffer is unchanged.
func (b *Buffer) Push(cmd StepCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.cmds) >= b.capacity {
		return errors.QueueFullError("step buffer", b.capacity)
	}
	b.cmds = append(b.cmds, cmd)
	return nil
}

// Next returns the oldest unread command, advancing the read cursor.
// Commands stay buffered for Reset replay until Compact or Clear.
func (b *Buffer) Next() (StepCommand, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cursor >= len(b.cmds) {
		return StepCommand{}, false
	}
	cmd := b.cmds[b.cursor]
	b.cursor++
	return cmd, true
}

// Reset rewinds the read cursor to the first buffered command without
// re-pushing anything. Only commands not reclaimed by Compact replay.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor = 0
}

// Compact discards commands already handed out by Next, reclaiming
// their capacity for new pushes. Unread commands keep their order and
// become the new replay window. Returns the number of slots reclaimed.
func (b *Buffer) Compact() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cursor == 0 {
		return 0
	}
	reclaimed := b.cursor
	n := copy(b.cmds, b.cmds[b.cursor:])
	b.cmds = b.cmds[:n]
	b.cursor = 0
	return reclaimed
}

// Clear empties the buffer fully
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cmds = b.cmds[:0]
	b.cursor = 0
}

// Len returns the number of buffered commands (read or not)
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cmds)
}

// Pending returns the number of commands not yet read
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cmds) - b.cursor
}

// Free returns the remaining push capacity
func (b *Buffer) Free() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity - len(b.cmds)
}
