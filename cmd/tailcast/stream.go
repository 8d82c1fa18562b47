// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tailcast/tailcast/lib/netutil"
)

// streamEventKind discriminates the events a streamSource delivers.
type streamEventKind int

const (
	// streamEventLine carries one log line from the daemon.
	streamEventLine streamEventKind = iota
	// streamEventConnected signals that a connection was established
	// and live delivery has started.
	streamEventConnected
	// streamEventDisconnected signals that the connection ended; the
	// source backs off and reconnects on its own.
	streamEventDisconnected
)

// streamEvent is a single item on the source's event channel.
type streamEvent struct {
	kind streamEventKind
	line string // Set for streamEventLine.
	err  error  // Set for streamEventDisconnected.
}

// Backoff parameters for reconnection after stream disconnects.
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// dialTimeout bounds the websocket handshake with the daemon.
const dialTimeout = 5 * time.Second

// streamSource subscribes to the daemon's websocket log stream and
// delivers lines and connection state changes on a channel. The
// background goroutine handles the connection lifecycle: dial, read
// loop, and exponential backoff reconnection. The daemon replays its
// backlog on every connect, so a reconnect recovers recent history
// without any handshake state.
type streamSource struct {
	url    string
	events chan streamEvent
	cancel context.CancelFunc
}

// newStreamSource creates a streamSource connected to the given
// websocket URL. The background goroutine starts immediately; call
// Close to shut it down.
func newStreamSource(url string) *streamSource {
	source := &streamSource{
		url:    url,
		events: make(chan streamEvent, 64),
	}

	ctx, cancel := context.WithCancel(context.Background())
	source.cancel = cancel
	go source.streamLoop(ctx)

	return source
}

// Events returns the channel the source delivers on. The channel is
// never closed; stop reading after Close.
func (source *streamSource) Events() <-chan streamEvent {
	return source.events
}

// Close shuts down the background stream goroutine and releases the
// connection. Safe to call multiple times.
func (source *streamSource) Close() {
	source.cancel()
}

// streamLoop manages the connection lifecycle with exponential backoff
// reconnection. Runs in a background goroutine until the context is
// cancelled.
func (source *streamSource) streamLoop(ctx context.Context) {
	backoff := initialBackoff
	for {
		err := source.runStream(ctx)
		if ctx.Err() != nil {
			return
		}
		source.deliver(ctx, streamEvent{kind: streamEventDisconnected, err: err})

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// runStream establishes a single websocket connection and reads lines
// until the connection ends or the context is cancelled. Returns the
// error that ended the stream.
func (source *streamSource) runStream(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, response, err := dialer.DialContext(ctx, source.url, nil)
	if err != nil {
		// On a rejected handshake the daemon's HTTP error body says
		// why (wrong path, subscriber limit); surface it.
		if response != nil {
			if body := strings.TrimSpace(netutil.ErrorBody(response.Body)); body != "" {
				return fmt.Errorf("connecting: %w: %s", err, body)
			}
		}
		return fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	// Close the connection when the context is cancelled. This
	// unblocks the ReadMessage call below.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	source.deliver(ctx, streamEvent{kind: streamEventConnected})

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("reading stream: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}
		source.deliver(ctx, streamEvent{kind: streamEventLine, line: string(payload)})
	}
}

// deliver sends an event to the channel, giving up when the context is
// cancelled so the source never blocks on a departed consumer.
func (source *streamSource) deliver(ctx context.Context, event streamEvent) {
	select {
	case source.events <- event:
	case <-ctx.Done():
	}
}
