// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net"
	"time"

	"github.com/tailcast/tailcast/lib/codec"
)

// Client-side pacing. The connect timeout covers only the dial; the
// reply timeout covers the server running the handler and writing the
// response. Admin handlers answer from memory, so thirty seconds is
// generous. The reply cap matches what a status or rule listing could
// plausibly grow to, with room to spare.
const (
	connectTimeout = 5 * time.Second
	replyTimeout   = 30 * time.Second
	maxReplyBytes  = 1024 * 1024
)

// ServiceError is the error Call returns when the daemon answered
// with ok=false: the request made it to a handler and the handler
// said no. Transport problems (daemon not running, socket missing)
// come back as ordinary errors instead, so callers can tell "daemon
// refused" from "daemon unreachable" with errors.As.
type ServiceError struct {
	Action  string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("daemon rejected %q: %s", e.Action, e.Message)
}

// ServiceClient issues admin requests against a daemon socket. Every
// Call is its own connection, mirroring the server's one-request
// model; the zero cost of a Unix socket dial makes pooling pointless.
type ServiceClient struct {
	socketPath string
}

// NewServiceClient returns a client for the admin socket at
// socketPath. It does not touch the socket; a missing daemon shows up
// as a dial error on the first Call.
func NewServiceClient(socketPath string) *ServiceClient {
	return &ServiceClient{socketPath: socketPath}
}

// Call invokes action with the given request fields and decodes the
// response data into result.
//
// fields holds the action's parameters and may be nil; the "action"
// key is added here and must not appear in it. result may be nil when
// the caller does not care about response data, and is left untouched
// when the response carries none.
func (c *ServiceClient) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	request := make(map[string]any, len(fields)+1)
	maps.Copy(request, fields)
	request["action"] = action

	response, err := c.exchange(ctx, request)
	if err != nil {
		return fmt.Errorf("admin call %q: %w", action, err)
	}
	if !response.OK {
		return &ServiceError{Action: action, Message: response.Error}
	}
	if result == nil || len(response.Data) == 0 {
		return nil
	}
	if err := codec.Unmarshal(response.Data, result); err != nil {
		return fmt.Errorf("decoding %q response: %w", action, err)
	}
	return nil
}

// exchange runs one connect-send-receive cycle.
func (c *ServiceClient) exchange(ctx context.Context, request map[string]any) (Response, error) {
	dialer := net.Dialer{Timeout: connectTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return Response{}, fmt.Errorf("connecting to %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return Response{}, fmt.Errorf("sending request: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(replyTimeout)) //nolint:realclock // kernel I/O deadline
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxReplyBytes)).Decode(&response); err != nil {
		return Response{}, fmt.Errorf("reading response: %w", err)
	}
	return response, nil
}
