// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tailcast/tailcast/lib/testutil"
)

// dialStream opens a websocket subscription to the test server's
// /ws/logs endpoint.
func dialStream(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/logs"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readStreamLine reads one text frame, failing the test if none
// arrives within the timeout.
func readStreamLine(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(waitTimeout)) //nolint:realclock // kernel I/O deadline
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading stream line: %v", err)
	}
	return string(payload)
}

// startBroadcaster runs the daemon's broadcaster until the test ends.
func startBroadcaster(t *testing.T, daemon *Daemon) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		daemon.broadcaster.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		testutil.RequireClosed(t, done, waitTimeout, "broadcaster to stop")
	})
}

// TestLogStreamEndToEnd walks the full subscriber lifecycle: connect,
// receive a formatted application log verbatim, health-check traffic
// suppressed, a second subscriber replaying the backlog, and the
// stream continuing for the survivor after the first disconnects.
func TestLogStreamEndToEnd(t *testing.T) {
	daemon, _ := newTestDaemon(t, nil)
	startBroadcaster(t, daemon)

	server := httptest.NewServer(daemon.routes())
	defer server.Close()

	first := dialStream(t, server)

	// The connection's own lifecycle log is the first broadcast line:
	// the handler registers the subscriber before logging.
	line := readStreamLine(t, first)
	if !strings.HasPrefix(line, "2024-01-01 12:00:00 - INFO - client connected subscriber=1 remote=127.0.0.1:") {
		t.Fatalf("first line = %q, want own connect log", line)
	}

	daemon.logger.Info("hello")
	if line := readStreamLine(t, first); line != "2024-01-01 12:00:00 - INFO - hello" {
		t.Fatalf("line = %q, want exact formatted hello", line)
	}

	// A health probe's access log matches a default filter rule and
	// never reaches the stream; the next line the subscriber sees is
	// the one logged after the probe.
	response, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("health probe: %v", err)
	}
	body, _ := io.ReadAll(response.Body)
	response.Body.Close()
	if string(body) != `{"status":"healthy"}`+"\n" {
		t.Fatalf("health body = %q", body)
	}

	daemon.logger.Info("next line")
	if line := readStreamLine(t, first); line != "2024-01-01 12:00:00 - INFO - next line" {
		t.Fatalf("line = %q, want the post-probe line with no health log before it", line)
	}

	// A second subscriber replays the backlog before going live.
	second := dialStream(t, server)
	wantReplay := []string{
		"client connected subscriber=1",
		"hello",
		"next line",
	}
	for _, want := range wantReplay {
		line := readStreamLine(t, second)
		if !strings.Contains(line, want) {
			t.Fatalf("replayed line = %q, want it to contain %q", line, want)
		}
	}
	if line := readStreamLine(t, second); !strings.Contains(line, "client connected subscriber=2") {
		t.Fatalf("line = %q, want second subscriber's connect log", line)
	}
	if line := readStreamLine(t, first); !strings.Contains(line, "client connected subscriber=2") {
		t.Fatalf("line = %q, want second connect log on first subscriber too", line)
	}

	// Abrupt disconnect of the first subscriber: the read loop
	// notices, deregisters, and the stream continues for the second.
	first.Close()
	waitFor(t, func() bool { return daemon.registry.Len() == 1 }, "first subscriber to deregister")

	daemon.logger.Info("final line")
	for {
		line := readStreamLine(t, second)
		if strings.HasSuffix(line, "final line") {
			break
		}
		if !strings.Contains(line, "client disconnected subscriber=1") {
			t.Fatalf("unexpected line %q while waiting for the final line", line)
		}
	}
}

func TestBacklogReplayOnConnect(t *testing.T) {
	daemon, _ := newTestDaemon(t, nil)
	startBroadcaster(t, daemon)

	// Lines from ingest sources are raw: no timestamp is prepended.
	for _, line := range []string{"one", "two", "three"} {
		daemon.pipeline.Submit(line)
	}
	waitFor(t, func() bool { return daemon.backlog.Len() == 3 }, "backlog to fill")

	server := httptest.NewServer(daemon.routes())
	defer server.Close()

	conn := dialStream(t, server)
	for _, want := range []string{"one", "two", "three"} {
		if line := readStreamLine(t, conn); line != want {
			t.Fatalf("replayed line = %q, want %q", line, want)
		}
	}
	if line := readStreamLine(t, conn); !strings.Contains(line, "client connected subscriber=1") {
		t.Fatalf("line after replay = %q, want live connect log", line)
	}
}

func TestKeepalivePing(t *testing.T) {
	daemon, fake := newTestDaemon(t, nil)

	server := httptest.NewServer(daemon.routes())
	defer server.Close()

	conn := dialStream(t, server)

	pings := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pings <- struct{}{}:
		default:
		}
		return nil
	})

	// Control frames are only processed while a read is in flight.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// The ping loop's ticker is the daemon's only fake-clock waiter.
	fake.WaitForTimers(1)
	fake.Advance(daemon.config.Subscriber.PingInterval.Std())
	testutil.RequireReceive(t, pings, waitTimeout, "keepalive ping")
}

func TestShutdownClosesSubscribers(t *testing.T) {
	daemon, _ := newTestDaemon(t, nil)

	server := httptest.NewServer(daemon.routes())
	defer server.Close()

	conn := dialStream(t, server)
	waitFor(t, func() bool { return daemon.registry.Len() == 1 }, "subscriber to register")

	close(daemon.shutdown)

	conn.SetReadDeadline(time.Now().Add(waitTimeout)) //nolint:realclock // kernel I/O deadline
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("read succeeded after daemon shutdown")
	}
	waitFor(t, func() bool { return daemon.registry.Len() == 0 }, "subscriber to deregister")
}
