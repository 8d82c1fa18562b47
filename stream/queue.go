// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"fmt"
	"sync"
)

// Queue is a bounded FIFO of formatted log lines between producers
// and the Broadcaster. Enqueue never blocks: when the queue is at
// capacity the incoming line is dropped and counted, and lines
// already accepted are never evicted. Dequeue blocks until a line is
// available or the context ends, and returns lines in exact enqueue
// order.
//
// The notify channel (capacity 1) wakes the Broadcaster when new data
// arrives. Any number of producers may call Enqueue concurrently;
// Dequeue is owned by the single Broadcaster goroutine.
type Queue struct {
	mu       sync.Mutex
	entries  []string
	capacity int
	dropped  uint64
	notify   chan struct{}
}

// NewQueue creates a Queue holding at most capacity lines. The
// capacity must be positive.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		panic(fmt.Sprintf("stream.Queue: capacity must be positive, got %d", capacity))
	}
	return &Queue{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Enqueue appends a line to the queue. If the queue is full the line
// is dropped silently and the Dropped counter is incremented; the
// caller never blocks and never learns of the drop inline.
func (q *Queue) Enqueue(line string) {
	q.mu.Lock()
	if len(q.entries) >= q.capacity {
		q.dropped++
		q.mu.Unlock()
		return
	}
	q.entries = append(q.entries, line)
	q.mu.Unlock()

	// Non-blocking signal to the consumer.
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the oldest line. Blocks until a line is
// available or ctx is done. A non-empty queue yields a line even when
// ctx has already ended, so a shutting-down consumer drains accepted
// lines instead of abandoning them; ok=false is returned once the
// queue is empty and ctx is done. With a single consumer, successive
// calls observe lines in exact enqueue order with no duplication.
func (q *Queue) Dequeue(ctx context.Context) (line string, ok bool) {
	for {
		q.mu.Lock()
		if len(q.entries) > 0 {
			line := q.entries[0]
			q.entries[0] = "" // release for GC
			q.entries = q.entries[1:]
			q.mu.Unlock()
			return line, true
		}
		q.mu.Unlock()

		// The notify channel is buffered, so a signal sent between
		// the unlock above and this select is not lost.
		select {
		case <-ctx.Done():
			return "", false
		case <-q.notify:
		}
	}
}

// Depth returns the number of lines currently queued.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Capacity returns the maximum number of lines the queue holds.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Dropped returns the total number of lines dropped at enqueue due to
// a full queue since creation.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
