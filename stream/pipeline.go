// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import "sync/atomic"

// Pipeline is the single ingestion boundary for the stream. Every
// producer (the process's own LineHandler, the HTTP ingest endpoint,
// the TCP listener, the stdin reader) hands lines to Submit and
// touches nothing else: the filter and the queue stay behind it.
//
// Submit never blocks and never fails. A line either passes the
// filter and is offered to the queue, or is suppressed and counted.
type Pipeline struct {
	filter          *Filter
	queue           *Queue
	linesSubmitted  atomic.Uint64
	linesSuppressed atomic.Uint64
}

// NewPipeline creates a pipeline over filter and queue. Panics if
// either is nil.
func NewPipeline(filter *Filter, queue *Queue) *Pipeline {
	if filter == nil {
		panic("stream.Pipeline: filter is required")
	}
	if queue == nil {
		panic("stream.Pipeline: queue is required")
	}
	return &Pipeline{filter: filter, queue: queue}
}

// Submit offers one line to the stream. Suppressed lines are counted
// and dropped; everything else is enqueued for broadcast. Safe to
// call from any goroutine.
func (p *Pipeline) Submit(line string) {
	p.linesSubmitted.Add(1)
	if !p.filter.ShouldForward(line) {
		p.linesSuppressed.Add(1)
		return
	}
	p.queue.Enqueue(line)
}

// LinesSubmitted returns the number of lines ever offered to Submit.
func (p *Pipeline) LinesSubmitted() uint64 {
	return p.linesSubmitted.Load()
}

// LinesSuppressed returns the number of submitted lines the filter
// suppressed.
func (p *Pipeline) LinesSuppressed() uint64 {
	return p.linesSuppressed.Load()
}
