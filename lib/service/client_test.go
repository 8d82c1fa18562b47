// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tailcast/tailcast/lib/codec"
)

func TestClientStatusCall(t *testing.T) {
	socketPath := newSocketPath(t)
	server := NewSocketServer(socketPath, discardLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return map[string]any{"queue_depth": 42}, nil
	})
	startServer(t, server, socketPath)

	var result map[string]any
	if err := NewServiceClient(socketPath).Call(t.Context(), "status", nil, &result); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result["queue_depth"] != uint64(42) {
		t.Errorf("queue_depth = %v (%T), want 42", result["queue_depth"], result["queue_depth"])
	}
}

func TestClientSendsFields(t *testing.T) {
	socketPath := newSocketPath(t)
	server := NewSocketServer(socketPath, discardLogger())

	var receivedRule string
	server.Handle("remove-rule", func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			Rule string `cbor:"rule"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		receivedRule = request.Rule
		return map[string]any{"rules": 4}, nil
	})
	startServer(t, server, socketPath)

	var result struct {
		Rules int `cbor:"rules"`
	}
	err := NewServiceClient(socketPath).Call(t.Context(), "remove-rule", map[string]any{"rule": "/health"}, &result)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if receivedRule != "/health" {
		t.Errorf("handler saw rule %q, want /health", receivedRule)
	}
	if result.Rules != 4 {
		t.Errorf("rules = %d, want 4", result.Rules)
	}
}

func TestClientNilResult(t *testing.T) {
	socketPath := newSocketPath(t)
	server := NewSocketServer(socketPath, discardLogger())
	server.Handle("ping", func(ctx context.Context, raw []byte) (any, error) {
		return map[string]any{"pong": true}, nil
	})
	startServer(t, server, socketPath)

	// nil result discards whatever the server sent back.
	if err := NewServiceClient(socketPath).Call(t.Context(), "ping", nil, nil); err != nil {
		t.Fatalf("Call with nil result: %v", err)
	}
}

func TestClientDatalessResponse(t *testing.T) {
	socketPath := newSocketPath(t)
	server := NewSocketServer(socketPath, discardLogger())
	server.Handle("noop", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server, socketPath)

	// A result target stays untouched when the response has no data.
	var result map[string]any
	if err := NewServiceClient(socketPath).Call(t.Context(), "noop", nil, &result); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result != nil {
		t.Errorf("result = %v, want untouched nil", result)
	}
}

func TestClientServiceError(t *testing.T) {
	socketPath := newSocketPath(t)
	server := NewSocketServer(socketPath, discardLogger())
	server.Handle("fail", func(ctx context.Context, raw []byte) (any, error) {
		return nil, errors.New("something broke")
	})
	startServer(t, server, socketPath)

	err := NewServiceClient(socketPath).Call(t.Context(), "fail", nil, nil)
	if err == nil {
		t.Fatal("Call succeeded against a failing handler")
	}
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("error is %T, want *ServiceError: %v", err, err)
	}
	if serviceErr.Action != "fail" {
		t.Errorf("Action = %q, want fail", serviceErr.Action)
	}
	if serviceErr.Message != "something broke" {
		t.Errorf("Message = %q, want %q", serviceErr.Message, "something broke")
	}
}

func TestClientUnknownAction(t *testing.T) {
	socketPath := newSocketPath(t)
	server := NewSocketServer(socketPath, discardLogger())
	server.Handle("known", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server, socketPath)

	err := NewServiceClient(socketPath).Call(t.Context(), "unknown", nil, nil)
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("error is %T, want *ServiceError: %v", err, err)
	}
}

func TestClientDaemonUnreachable(t *testing.T) {
	client := NewServiceClient("/tmp/no-such-daemon.sock")

	err := client.Call(t.Context(), "status", nil, nil)
	if err == nil {
		t.Fatal("Call succeeded with no daemon listening")
	}
	// Transport failures are ordinary errors, not ServiceError: the
	// daemon never saw the request.
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		t.Fatalf("dial failure came back as *ServiceError: %v", serviceErr)
	}
}

func TestClientConcurrentCalls(t *testing.T) {
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

	client := NewServiceClient(socketPath)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var result map[string]any
			if err := client.Call(t.Context(), "echo", map[string]any{"value": i}, &result); err != nil {
				t.Errorf("call %d: %v", i, err)
				return
			}
			if result["value"] != uint64(i) {
				t.Errorf("call %d: value = %v", i, result["value"])
			}
		}()
	}
	wg.Wait()
}
