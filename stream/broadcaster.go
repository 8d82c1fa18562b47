// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Sink receives every broadcast line for archival. The Broadcaster
// calls WriteLine from its single goroutine, one line at a time, so
// implementations never see concurrent calls.
type Sink interface {
	WriteLine(line string) error
}

// BroadcasterConfig carries the collaborators for NewBroadcaster.
type BroadcasterConfig struct {
	// Queue is the source of lines to deliver. Required.
	Queue *Queue

	// Registry holds the live subscribers. Required.
	Registry *Registry

	// Backlog, when non-nil, records every delivered line for
	// replay to newly connected subscribers.
	Backlog *Backlog

	// Sink, when non-nil, receives every delivered line for
	// archival. Sink errors are logged and do not disturb fan-out.
	Sink Sink

	// Logger receives delivery failure and panic recovery logs.
	// It must not route back into the stream: hand the broadcaster
	// a stderr-only logger, never one carrying the live-stream
	// handler, or a failing subscriber would generate lines that
	// are themselves broadcast. Required.
	Logger *slog.Logger
}

// Broadcaster drains the queue and fans each line out to all
// registered subscribers. Exactly one Run goroutine exists for the
// lifetime of the process and it must never die: every delivery is
// wrapped in recover, and subscriber failures are logged rather than
// propagated.
//
// Within one line, sends run concurrently, one goroutine per
// subscriber, and the broadcaster waits for the whole batch before
// taking the next line. A slow subscriber therefore delays everyone;
// the connection handler bounds that delay with write deadlines.
//
// A failed send never deregisters the subscriber. Deregistration
// belongs to the connection handler, which owns the connection and
// notices remote closure itself.
type Broadcaster struct {
	queue          *Queue
	registry       *Registry
	backlog        *Backlog
	sink           Sink
	logger         *slog.Logger
	linesBroadcast atomic.Uint64
}

// NewBroadcaster creates a broadcaster from config. Panics if a
// required collaborator is missing.
func NewBroadcaster(config BroadcasterConfig) *Broadcaster {
	if config.Queue == nil {
		panic("stream.Broadcaster: Queue is required")
	}
	if config.Registry == nil {
		panic("stream.Broadcaster: Registry is required")
	}
	if config.Logger == nil {
		panic("stream.Broadcaster: Logger is required")
	}
	return &Broadcaster{
		queue:    config.Queue,
		registry: config.Registry,
		backlog:  config.Backlog,
		sink:     config.Sink,
		logger:   config.Logger,
	}
}

// Run delivers queued lines until ctx is cancelled and the queue has
// drained. Call it from exactly one goroutine; per-line batching
// assumes a single drainer.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		line, ok := b.queue.Dequeue(ctx)
		if !ok {
			return
		}
		b.deliver(line)
	}
}

// deliver fans one line out to the subscribers registered at this
// moment and waits for every send to finish. Line order is preserved
// because deliver only ever runs on the single Run goroutine.
func (b *Broadcaster) deliver(line string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			b.logger.Error("recovered from panic during line delivery",
				"panic", recovered)
		}
	}()

	if b.backlog != nil {
		b.backlog.Append(line)
	}
	if b.sink != nil {
		if err := b.sink.WriteLine(line); err != nil {
			b.logger.Debug("archive write failed", "error", err)
		}
	}

	subscribers := b.registry.Snapshot()
	if len(subscribers) > 0 {
		var batch sync.WaitGroup
		for _, subscriber := range subscribers {
			batch.Add(1)
			go func() {
				defer batch.Done()
				// The recover in deliver cannot see a panic
				// raised on this goroutine; each send carries
				// its own.
				defer func() {
					if recovered := recover(); recovered != nil {
						b.logger.Error("recovered from panic in subscriber send",
							"subscriber", subscriber.ID(),
							"panic", recovered)
					}
				}()
				if err := subscriber.Send(line); err != nil {
					b.logger.Debug("send to subscriber failed",
						"subscriber", subscriber.ID(),
						"error", err)
				}
			}()
		}
		batch.Wait()
	}

	b.linesBroadcast.Add(1)
}

// LinesBroadcast returns the number of lines delivered so far.
func (b *Broadcaster) LinesBroadcast() uint64 {
	return b.linesBroadcast.Load()
}
