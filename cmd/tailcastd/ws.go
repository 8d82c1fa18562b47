// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tailcast/tailcast/lib/netutil"
)

// wsSubscriber is one connected viewer. The broadcaster's fan-out
// goroutine and the ping loop both write to the connection, so every
// write goes through mu and carries the configured write deadline.
type wsSubscriber struct {
	id           uint64
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu sync.Mutex
}

// ID identifies the subscriber in the registry and in logs.
func (s *wsSubscriber) ID() uint64 { return s.id }

// Send delivers one line as a text frame. A subscriber that cannot
// accept the frame within the write deadline errors this send and
// misses the line; it stays registered until its read loop notices
// the connection is gone.
func (s *wsSubscriber) Send(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)) //nolint:realclock // kernel I/O deadline
	return s.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

// sendPing writes a keepalive ping under the same lock and deadline
// as line delivery.
func (s *wsSubscriber) sendPing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)) //nolint:realclock // kernel I/O deadline
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

// handleLogStream serves GET /ws/logs: upgrade, replay the backlog,
// register, deliver until the peer goes away, deregister. Each
// connection runs this once; a reconnecting client is a brand new
// subscriber with a new ID.
func (d *Daemon) handleLogStream(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		d.logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	subscriber := &wsSubscriber{
		id:           d.subscriberIDs.Add(1),
		conn:         conn,
		writeTimeout: d.config.Subscriber.WriteTimeout.Std(),
	}

	// Replay precedes registration so a viewer always sees backlog
	// lines before live ones; a line broadcast while replay runs is
	// missed rather than reordered.
	for _, line := range d.backlog.Lines() {
		if err := subscriber.Send(line); err != nil {
			d.logger.Debug("backlog replay failed",
				"subscriber", subscriber.id,
				"error", err)
			conn.Close()
			return
		}
	}

	d.registry.Add(subscriber)
	d.logger.Info("client connected",
		"subscriber", subscriber.id,
		"remote", r.RemoteAddr)

	defer func() {
		d.registry.Remove(subscriber)
		conn.Close()
		d.logger.Info("client disconnected", "subscriber", subscriber.id)
	}()

	// Close the connection at daemon shutdown to unblock the read
	// loop's blocking ReadMessage.
	handlerDone := make(chan struct{})
	defer close(handlerDone)
	go func() {
		select {
		case <-d.shutdown:
			conn.Close()
		case <-handlerDone:
		}
	}()

	go d.pingLoop(subscriber, handlerDone)

	// Inbound frames carry nothing; the read loop exists to notice
	// closure and to service ping/pong. Pongs push the read deadline
	// forward, so a subscriber that stops answering is treated as
	// gone.
	pongWait := 2 * d.config.Subscriber.PingInterval.Std()
	conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:realclock // kernel I/O deadline
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:realclock // kernel I/O deadline
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !isExpectedStreamClose(err) {
				d.logger.Debug("subscriber read failed",
					"subscriber", subscriber.id,
					"error", err)
			}
			return
		}
	}
}

// pingLoop spaces keepalive pings until the connection handler
// finishes. A ping failure is not acted on here; the read loop owns
// disconnect handling.
func (d *Daemon) pingLoop(subscriber *wsSubscriber, done <-chan struct{}) {
	ticker := d.clock.NewTicker(d.config.Subscriber.PingInterval.Std())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := subscriber.sendPing(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// isExpectedStreamClose reports whether a read error is an ordinary
// client departure rather than something worth logging.
func isExpectedStreamClose(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		return true
	}
	return netutil.IsExpectedCloseError(err)
}
