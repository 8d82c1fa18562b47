// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tailcast/tailcast/lib/codec"
	"github.com/tailcast/tailcast/lib/testutil"
)

// Shared scaffolding for the socket and client tests in this package.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSocketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(testutil.SocketDir(t), "admin.sock")
}

// startServer serves the socket in the background for the rest of the
// test and returns once it accepts connections. Shutdown and the
// Serve error check happen in test cleanup.
func startServer(t *testing.T, server *SocketServer, socketPath string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, done, 5*time.Second, "Serve return after cancel"); err != nil {
			t.Errorf("Serve: %v", err)
		}
	})

	// A Stat-based wait would be fooled by a stale socket file, so
	// poll by dialing until the listener answers.
	for {
		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			conn.Close()
			return
		}
		if t.Context().Err() != nil {
			t.Fatalf("socket %s never accepted a connection", socketPath)
		}
		runtime.Gosched()
	}
}

// roundTrip performs one request cycle against the socket and returns
// the decoded envelope.
func roundTrip(t *testing.T, socketPath string, request any) Response {
	t.Helper()

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dialing %s: %v", socketPath, err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		t.Fatalf("encoding request: %v", err)
	}
	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return response
}

// unwrap decodes a response's data field into target.
func unwrap(t *testing.T, response Response, target any) {
	t.Helper()
	if len(response.Data) == 0 {
		t.Fatalf("response carries no data (ok=%v error=%q)", response.OK, response.Error)
	}
	if err := codec.Unmarshal(response.Data, target); err != nil {
		t.Fatalf("decoding response data: %v", err)
	}
}

func TestSocketStatusAction(t *testing.T) {
	socketPath := newSocketPath(t)
	server := NewSocketServer(socketPath, discardLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return map[string]any{"queue_depth": 7, "subscribers": 3}, nil
	})
	startServer(t, server, socketPath)

	response := roundTrip(t, socketPath, map[string]string{"action": "status"})
	if !response.OK {
		t.Fatalf("ok=false, error=%q", response.Error)
	}

	var data map[string]any
	unwrap(t, response, &data)
	if data["queue_depth"] != uint64(7) {
		t.Errorf("queue_depth = %v (%T), want 7", data["queue_depth"], data["queue_depth"])
	}
	if data["subscribers"] != uint64(3) {
		t.Errorf("subscribers = %v (%T), want 3", data["subscribers"], data["subscribers"])
	}
}

func TestSocketUnknownAction(t *testing.T) {
	socketPath := newSocketPath(t)
	server := NewSocketServer(socketPath, discardLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server, socketPath)

	response := roundTrip(t, socketPath, map[string]string{"action": "nonexistent"})
	if response.OK {
		t.Error("ok=true for unknown action")
	}
	if !strings.Contains(response.Error, `unknown action "nonexistent"`) {
		t.Errorf("error = %q, want it to name the unknown action", response.Error)
	}
}

func TestSocketMissingAction(t *testing.T) {
	socketPath := newSocketPath(t)
	server := NewSocketServer(socketPath, discardLogger())
	startServer(t, server, socketPath)

	response := roundTrip(t, socketPath, map[string]string{"foo": "bar"})
	if response.OK {
		t.Error("ok=true for request without an action")
	}
	if response.Error == "" {
		t.Error("empty error for request without an action")
	}
}

func TestSocketMalformedRequest(t *testing.T) {
	socketPath := newSocketPath(t)
	server := NewSocketServer(socketPath, discardLogger())
	startServer(t, server, socketPath)

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer conn.Close()

	// 0xff is not a valid CBOR initial byte outside an indefinite-
	// length item, so the decoder rejects it immediately.
	if _, err := conn.Write([]byte{0xff, 0xfe, 0xfd}); err != nil {
		t.Fatalf("writing garbage: %v", err)
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if response.OK {
		t.Error("ok=true for malformed request")
	}
	if response.Error == "" {
		t.Error("empty error for malformed request")
	}
}

func TestSocketHandlerErrorText(t *testing.T) {
	socketPath := newSocketPath(t)
	server := NewSocketServer(socketPath, discardLogger())
	server.Handle("fail", func(ctx context.Context, raw []byte) (any, error) {
		return nil, errors.New("something broke")
	})
	startServer(t, server, socketPath)

	response := roundTrip(t, socketPath, map[string]string{"action": "fail"})
	if response.OK {
		t.Error("ok=true for failed handler")
	}
	// The handler's text reaches the operator untouched.
	if response.Error != "something broke" {
		t.Errorf("error = %q, want %q", response.Error, "something broke")
	}
}

func TestSocketNilResultOmitsData(t *testing.T) {
	socketPath := newSocketPath(t)
	server := NewSocketServer(socketPath, discardLogger())
	server.Handle("noop", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server, socketPath)

	response := roundTrip(t, socketPath, map[string]string{"action": "noop"})
	if !response.OK {
		t.Fatalf("ok=false, error=%q", response.Error)
	}
	if len(response.Data) != 0 {
		t.Errorf("data = %d bytes, want none", len(response.Data))
	}
}

func TestSocketHandlerDecodesRequest(t *testing.T) {
	socketPath := newSocketPath(t)
	server := NewSocketServer(socketPath, discardLogger())

	var receivedRule string
	server.Handle("add-rule", func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			Rule string `cbor:"rule"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		receivedRule = request.Rule
		return map[string]any{"rules": 6}, nil
	})
	startServer(t, server, socketPath)

	response := roundTrip(t, socketPath, map[string]any{
		"action": "add-rule",
		"rule":   "GET /metrics",
	})
	if !response.OK {
		t.Fatalf("ok=false, error=%q", response.Error)
	}
	if receivedRule != "GET /metrics" {
		t.Errorf("handler saw rule %q, want %q", receivedRule, "GET /metrics")
	}

	var data map[string]any
	unwrap(t, response, &data)
	if data["rules"] != uint64(6) {
		t.Errorf("rules = %v, want 6", data["rules"])
	}
}

func TestSocketConcurrentClients(t *testing.T) {
	socketPath := newSocketPath(t)
	server := NewSocketServer(socketPath, discardLogger())
	server.Handle("echo", func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			Value int `cbor:"value"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		return map[string]any{"value": request.Value}, nil
	})
	startServer(t, server, socketPath)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			response := roundTrip(t, socketPath, map[string]any{"action": "echo", "value": i})
			if !response.OK {
				t.Errorf("request %d: ok=false, error=%q", i, response.Error)
				return
			}
			var data map[string]any
			unwrap(t, response, &data)
			if data["value"] != uint64(i) {
				t.Errorf("request %d: value = %v", i, data["value"])
			}
		}()
	}
	wg.Wait()
}

func TestSocketShutdownWaitsForInflight(t *testing.T) {
	socketPath := newSocketPath(t)
	server := NewSocketServer(socketPath, discardLogger())

	started := make(chan struct{})
	release := make(chan struct{})
	server.Handle("slow", func(ctx context.Context, raw []byte) (any, error) {
		close(started)
		<-release
		return map[string]any{"completed": true}, nil
	})

	// Managed by hand: this test needs to cancel while a request is
	// mid-handler, so startServer's cleanup-driven shutdown does not
	// fit.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()
	for {
		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			conn.Close()
			break
		}
		if t.Context().Err() != nil {
			t.Fatal("socket never accepted a connection")
		}
		runtime.Gosched()
	}

	responses := make(chan Response, 1)
	go func() {
		responses <- roundTrip(t, socketPath, map[string]string{"action": "slow"})
	}()

	<-started
	cancel()
	close(release)

	// The request that was already in a handler still gets its
	// response.
	response := testutil.RequireReceive(t, responses, 5*time.Second, "in-flight response")
	if !response.OK {
		t.Errorf("ok=false for in-flight request, error=%q", response.Error)
	}
	var data map[string]any
	unwrap(t, response, &data)
	if data["completed"] != true {
		t.Errorf("completed = %v, want true", data["completed"])
	}

	if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "Serve return"); err != nil {
		t.Errorf("Serve: %v", err)
	}
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Error("socket file survived shutdown")
	}
}

func TestSocketDuplicateActionPanics(t *testing.T) {
	server := NewSocketServer("/tmp/unused.sock", discardLogger())
	noop := func(ctx context.Context, raw []byte) (any, error) { return nil, nil }
	server.Handle("status", noop)

	defer func() {
		if recover() == nil {
			t.Error("second Handle for the same action did not panic")
		}
	}()
	server.Handle("status", noop)
}

func TestSocketStaleFileReplaced(t *testing.T) {
	socketPath := newSocketPath(t)

	// A crashed daemon leaves its socket file behind; the next start
	// must claim the path anyway.
	if err := os.WriteFile(socketPath, nil, 0o600); err != nil {
		t.Fatalf("planting stale socket file: %v", err)
	}

	server := NewSocketServer(socketPath, discardLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server, socketPath)

	response := roundTrip(t, socketPath, map[string]string{"action": "status"})
	if !response.OK {
		t.Errorf("ok=false after stale socket replacement, error=%q", response.Error)
	}
}
