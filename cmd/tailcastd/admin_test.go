// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/tailcast/tailcast/lib/service"
	"github.com/tailcast/tailcast/lib/testutil"
)

// startAdminSocket serves the daemon's admin actions on its configured
// socket path and returns a client for it.
func startAdminSocket(t *testing.T, daemon *Daemon) *service.ServiceClient {
	t.Helper()

	server := service.NewSocketServer(daemon.config.SocketPath,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	daemon.registerActions(server)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, done, waitTimeout, "socket server to stop"); err != nil {
			t.Errorf("socket server: %v", err)
		}
	})

	waitFor(t, func() bool {
		_, err := os.Stat(daemon.config.SocketPath)
		return err == nil
	}, "socket file to appear")
	return service.NewServiceClient(daemon.config.SocketPath)
}

func TestStatusAction(t *testing.T) {
	daemon, fake := newTestDaemon(t, nil)
	client := startAdminSocket(t, daemon)

	daemon.pipeline.Submit("a forwarded line")
	daemon.pipeline.Submit("GET /health probe")
	fake.Advance(90 * time.Second)

	var status statusResponse
	if err := client.Call(t.Context(), "status", nil, &status); err != nil {
		t.Fatalf("status call: %v", err)
	}

	if status.UptimeSeconds != 90 {
		t.Errorf("uptime_seconds = %v, want 90", status.UptimeSeconds)
	}
	if status.LinesSubmitted != 2 {
		t.Errorf("lines_submitted = %d, want 2", status.LinesSubmitted)
	}
	if status.LinesSuppressed != 1 {
		t.Errorf("lines_suppressed = %d, want 1", status.LinesSuppressed)
	}
	if status.QueueDepth != 1 {
		t.Errorf("queue_depth = %d, want 1 with no broadcaster draining", status.QueueDepth)
	}
	if status.QueueCapacity != daemon.config.Queue.Capacity {
		t.Errorf("queue_capacity = %d, want %d", status.QueueCapacity, daemon.config.Queue.Capacity)
	}
	if status.LinesDropped != 0 {
		t.Errorf("lines_dropped = %d, want 0", status.LinesDropped)
	}
	if status.LinesBroadcast != 0 {
		t.Errorf("lines_broadcast = %d, want 0", status.LinesBroadcast)
	}
	if status.Subscribers != 0 {
		t.Errorf("subscribers = %d, want 0", status.Subscribers)
	}
	if status.BacklogLines != 0 {
		t.Errorf("backlog_lines = %d, want 0", status.BacklogLines)
	}
	if status.Archive != nil {
		t.Errorf("archive = %+v, want nil with archiving disabled", status.Archive)
	}
}

func TestStatusReportsArchive(t *testing.T) {
	archiveDir := t.TempDir()
	daemon, _ := newTestDaemon(t, func(config *Config) {
		config.Archive.Directory = archiveDir
	})
	client := startAdminSocket(t, daemon)

	// Drain one line through the broadcaster into the archive. With a
	// cancelled context Run drains the queue and returns.
	drainCtx, drainCancel := context.WithCancel(t.Context())
	drainCancel()
	daemon.pipeline.Submit("kept for the archive")
	daemon.broadcaster.Run(drainCtx)

	var status statusResponse
	if err := client.Call(t.Context(), "status", nil, &status); err != nil {
		t.Fatalf("status call: %v", err)
	}

	if status.Archive == nil {
		t.Fatal("archive status missing with archiving enabled")
	}
	if status.Archive.Directory != archiveDir {
		t.Errorf("archive.directory = %q, want %q", status.Archive.Directory, archiveDir)
	}
	if status.Archive.Lines != 1 {
		t.Errorf("archive.lines = %d, want 1", status.Archive.Lines)
	}
	if want := uint64(len("kept for the archive") + 1); status.Archive.Bytes != want {
		t.Errorf("archive.bytes = %d, want %d", status.Archive.Bytes, want)
	}
	if status.Archive.Segments != 0 {
		t.Errorf("archive.segments = %d, want 0 while the open segment has not rotated", status.Archive.Segments)
	}
	if status.LinesBroadcast != 1 {
		t.Errorf("lines_broadcast = %d, want 1", status.LinesBroadcast)
	}
	if status.BacklogLines != 1 {
		t.Errorf("backlog_lines = %d, want 1", status.BacklogLines)
	}
}

func TestRulesAction(t *testing.T) {
	daemon, _ := newTestDaemon(t, func(config *Config) {
		config.Filter.Rules = []string{"/internal", "debug-probe"}
	})
	client := startAdminSocket(t, daemon)

	var rules rulesResponse
	if err := client.Call(t.Context(), "rules", nil, &rules); err != nil {
		t.Fatalf("rules call: %v", err)
	}
	if !slices.Equal(rules.Rules, []string{"/internal", "debug-probe"}) {
		t.Errorf("rules = %v, want the configured rules", rules.Rules)
	}
}

func TestUnknownActionRejected(t *testing.T) {
	daemon, _ := newTestDaemon(t, nil)
	client := startAdminSocket(t, daemon)

	err := client.Call(t.Context(), "flush", nil, nil)
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("error = %v, want a service error", err)
	}
	if !strings.Contains(serviceErr.Message, `unknown action "flush"`) {
		t.Errorf("message = %q, want the unknown action named", serviceErr.Message)
	}
}
