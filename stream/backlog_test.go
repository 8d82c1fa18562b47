// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"fmt"
	"sync"
	"testing"
)

func TestBacklogEmpty(t *testing.T) {
	backlog := NewBacklog(4)
	if lines := backlog.Lines(); lines != nil {
		t.Errorf("Lines() on empty backlog = %v, want nil", lines)
	}
	if got := backlog.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
	if got := backlog.TotalAppended(); got != 0 {
		t.Errorf("TotalAppended() = %d, want 0", got)
	}
}

func TestBacklogPartialFill(t *testing.T) {
	backlog := NewBacklog(4)
	backlog.Append("one")
	backlog.Append("two")

	lines := backlog.Lines()
	want := []string{"one", "two"}
	if len(lines) != len(want) {
		t.Fatalf("Lines() returned %d lines, want %d", len(lines), len(want))
	}
	for i, line := range want {
		if lines[i] != line {
			t.Errorf("Lines()[%d] = %q, want %q", i, lines[i], line)
		}
	}
	if got := backlog.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestBacklogWrapsOverwritingOldest(t *testing.T) {
	backlog := NewBacklog(3)
	for _, line := range []string{"one", "two", "three", "four", "five"} {
		backlog.Append(line)
	}

	lines := backlog.Lines()
	want := []string{"three", "four", "five"}
	if len(lines) != len(want) {
		t.Fatalf("Lines() returned %d lines, want %d", len(lines), len(want))
	}
	for i, line := range want {
		if lines[i] != line {
			t.Errorf("Lines()[%d] = %q, want %q", i, lines[i], line)
		}
	}
	if got := backlog.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	if got := backlog.TotalAppended(); got != 5 {
		t.Errorf("TotalAppended() = %d, want 5", got)
	}
}

func TestBacklogExactCapacity(t *testing.T) {
	backlog := NewBacklog(3)
	backlog.Append("one")
	backlog.Append("two")
	backlog.Append("three")

	lines := backlog.Lines()
	want := []string{"one", "two", "three"}
	for i, line := range want {
		if lines[i] != line {
			t.Errorf("Lines()[%d] = %q, want %q", i, lines[i], line)
		}
	}
}

func TestBacklogDisabled(t *testing.T) {
	backlog := NewBacklog(0)
	backlog.Append("dropped on the floor")

	if lines := backlog.Lines(); lines != nil {
		t.Errorf("Lines() on disabled backlog = %v, want nil", lines)
	}
	if got := backlog.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
	if got := backlog.TotalAppended(); got != 0 {
		t.Errorf("TotalAppended() = %d, want 0", got)
	}
}

func TestBacklogPanicsOnNegativeCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewBacklog(-1) did not panic")
		}
	}()
	NewBacklog(-1)
}

func TestBacklogLinesSnapshotIsolation(t *testing.T) {
	backlog := NewBacklog(4)
	backlog.Append("one")

	lines := backlog.Lines()
	lines[0] = "mutated"

	again := backlog.Lines()
	if again[0] != "one" {
		t.Errorf("Lines()[0] = %q after mutating earlier snapshot, want %q", again[0], "one")
	}
}

func TestBacklogConcurrentAppendAndRead(t *testing.T) {
	backlog := NewBacklog(16)
	var group sync.WaitGroup

	for producer := range 4 {
		group.Add(1)
		go func() {
			defer group.Done()
			for i := range 100 {
				backlog.Append(fmt.Sprintf("producer-%d-line-%d", producer, i))
			}
		}()
	}
	group.Add(1)
	go func() {
		defer group.Done()
		for range 100 {
			lines := backlog.Lines()
			if len(lines) > 16 {
				t.Errorf("Lines() returned %d lines, capacity is 16", len(lines))
				return
			}
		}
	}()
	group.Wait()

	if got := backlog.TotalAppended(); got != 400 {
		t.Errorf("TotalAppended() = %d, want 400", got)
	}
	if got := backlog.Len(); got != 16 {
		t.Errorf("Len() = %d, want 16", got)
	}
}
