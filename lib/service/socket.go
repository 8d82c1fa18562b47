// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/tailcast/tailcast/lib/codec"
	"github.com/tailcast/tailcast/lib/netutil"
)

// ActionFunc handles one admin action. raw is the complete CBOR
// request, action field included, so a handler that takes parameters
// decodes its own request struct from it. The returned value becomes
// the response's data field; nil means the response is a bare
// {ok: true}. A returned error becomes {ok: false, error: ...} with
// the error's text, so handlers phrase errors for the operator
// reading them.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// Response is the envelope every socket response travels in. The
// client unwraps it before its caller sees the data.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// Request sizing and pacing. Admin requests are an action name and at
// most a handful of short strings; anything bigger is a confused or
// hostile client.
const (
	maxRequestBytes = 256 * 1024
	requestTimeout  = 10 * time.Second
	responseTimeout = 10 * time.Second
)

// SocketServer answers one-shot CBOR requests on a Unix socket: the
// client connects, writes one request, reads one Response, and the
// connection is done. The socket path's filesystem permissions are
// the only access control, which is the point: operators on the box
// query the daemon without credentials.
type SocketServer struct {
	path    string
	actions map[string]ActionFunc
	logger  *slog.Logger

	// inflight holds Serve open until every accepted request has its
	// response written.
	inflight sync.WaitGroup
}

// NewSocketServer creates a server for path. Register actions with
// Handle, then call Serve.
func NewSocketServer(path string, logger *slog.Logger) *SocketServer {
	return &SocketServer{
		path:    path,
		actions: make(map[string]ActionFunc),
		logger:  logger,
	}
}

// Handle registers the handler for an action name. Panics on a
// duplicate name: two handlers for one action is a wiring bug.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if _, taken := s.actions[action]; taken {
		panic(fmt.Sprintf("service.SocketServer: action %q registered twice", action))
	}
	s.actions[action] = handler
}

// Serve listens on the socket until ctx is cancelled, then waits for
// in-flight requests before returning. A socket file left behind by
// an earlier process is removed before listening, and the live one is
// removed on the way out.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.path, err)
	}

	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.path, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.path)
	}()

	// Cancellation reaches the blocked Accept by closing the listener.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("socket listening", "path", s.path)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || netutil.IsExpectedCloseError(err) {
				break
			}
			s.logger.Error("socket accept failed", "error", err)
			continue
		}
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.serveConn(ctx, conn)
		}()
	}

	s.inflight.Wait()
	return nil
}

// serveConn runs one request-response cycle and closes the
// connection.
func (s *SocketServer) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(requestTimeout)) //nolint:realclock // kernel I/O deadline

	// One CBOR value is the whole request; CBOR is self-delimiting,
	// so there is no framing to parse. The limit keeps a misbehaving
	// client from growing the decode buffer without bound.
	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestBytes)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			// Connected and hung up without sending anything.
			return
		}
		s.respond(conn, Response{Error: fmt.Sprintf("reading request: %v", err)})
		return
	}

	s.respond(conn, s.dispatch(ctx, raw))
}

// dispatch routes the raw request to its action handler and shapes
// the outcome into the response envelope.
func (s *SocketServer) dispatch(ctx context.Context, raw codec.RawMessage) Response {
	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		return Response{Error: fmt.Sprintf("reading request: %v", err)}
	}
	if header.Action == "" {
		return Response{Error: "request has no action field"}
	}

	handler, known := s.actions[header.Action]
	if !known {
		return Response{Error: fmt.Sprintf("unknown action %q", header.Action)}
	}

	result, err := handler(ctx, []byte(raw))
	if err != nil {
		s.logger.Debug("action failed", "action", header.Action, "error", err)
		return Response{Error: err.Error()}
	}

	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			return Response{Error: fmt.Sprintf("encoding %s response: %v", header.Action, err)}
		}
		response.Data = data
	}
	return response
}

// respond writes the envelope. A client that vanished before its
// response is not an error worth more than a debug line; it already
// has nothing to read it with.
func (s *SocketServer) respond(conn net.Conn, response Response) {
	conn.SetWriteDeadline(time.Now().Add(responseTimeout)) //nolint:realclock // kernel I/O deadline
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("writing socket response failed", "error", err)
	}
}
