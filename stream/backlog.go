// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"fmt"
	"sync"
)

// DefaultBacklogLines is the default backlog ring capacity. 200 lines
// is enough for a connecting viewer to see recent context without the
// replay burst getting noticeable.
const DefaultBacklogLines = 200

// Backlog is a fixed-capacity ring of the most recently broadcast
// lines. The Broadcaster appends each line as it delivers it; the
// connection handler replays the ring to a new subscriber before
// registering it, so a fresh viewer starts with recent context.
//
// When the ring is full, the oldest line is overwritten. A capacity
// of zero disables the backlog: Append does nothing and Lines returns
// nil. Everything here is in-memory; nothing survives a restart.
//
// All methods are safe for concurrent use.
type Backlog struct {
	mu            sync.Mutex
	lines         []string
	capacity      int
	writePosition int
	totalAppended uint64
}

// NewBacklog creates a backlog ring holding the most recent capacity
// lines. A capacity of zero disables it; negative capacity panics.
func NewBacklog(capacity int) *Backlog {
	if capacity < 0 {
		panic(fmt.Sprintf("stream.Backlog: capacity must be non-negative, got %d", capacity))
	}
	return &Backlog{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

// Append records a broadcast line, overwriting the oldest entry when
// the ring is full.
func (b *Backlog) Append(line string) {
	if b.capacity == 0 {
		return
	}
	b.mu.Lock()
	b.lines[b.writePosition] = line
	b.writePosition = (b.writePosition + 1) % b.capacity
	b.totalAppended++
	b.mu.Unlock()
}

// Lines returns the retained lines, oldest first. Returns nil when
// the backlog is disabled or empty.
func (b *Backlog) Lines() []string {
	if b.capacity == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.totalAppended == 0 {
		return nil
	}

	stored := b.capacity
	if b.totalAppended < uint64(b.capacity) {
		stored = int(b.totalAppended)
	}

	// The oldest retained line sits at writePosition when the ring
	// has wrapped, at index 0 otherwise.
	start := 0
	if b.totalAppended >= uint64(b.capacity) {
		start = b.writePosition
	}

	result := make([]string, stored)
	for i := range stored {
		result[i] = b.lines[(start+i)%b.capacity]
	}
	return result
}

// Len returns the number of lines currently retained.
func (b *Backlog) Len() int {
	if b.capacity == 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.totalAppended < uint64(b.capacity) {
		return int(b.totalAppended)
	}
	return b.capacity
}

// TotalAppended returns the number of lines ever appended, including
// ones the ring has since overwritten.
func (b *Backlog) TotalAppended() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalAppended
}
