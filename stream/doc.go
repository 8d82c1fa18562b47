// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

// Package stream implements the live log fan-out core: a filtered,
// bounded pipeline from line producers to websocket subscribers.
//
// Data flow:
//
//	producers → Pipeline.Submit → Filter → Queue → Broadcaster → subscribers
//	                                                    ├→ Backlog (replay ring)
//	                                                    └→ Sink (archive mirror)
//
// Producers are anything that can hand the daemon a formatted line:
// the daemon's own logger (LineHandler), the HTTP ingest endpoint,
// the TCP line listener, or a stdin scanner. Every producer goes
// through Pipeline.Submit; there is no side door into the queue.
//
// The Filter suppresses lines matching configured substrings (health
// checks, favicon noise) before they cost queue space. The Queue is a
// bounded FIFO that never blocks a producer: when full, the incoming
// line is dropped and counted, and accepted lines are never evicted.
// The Broadcaster is the queue's only consumer. It delivers each line
// to all registered subscribers concurrently, waits for the whole
// batch, then moves to the next line, so every subscriber observes
// the same global order.
//
// Subscriber registration and removal belong to the connection
// lifecycle (the websocket handler in cmd/tailcastd), never to the
// Broadcaster: a failed send is logged and otherwise ignored.
package stream
