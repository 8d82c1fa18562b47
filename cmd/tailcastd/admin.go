// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/tailcast/tailcast/lib/service"
)

// statusResponse is the wire format for the "status" action. Returns
// daemon health information for liveness checks and operational
// monitoring.
type statusResponse struct {
	UptimeSeconds   float64        `cbor:"uptime_seconds"`
	Subscribers     int            `cbor:"subscribers"`
	QueueDepth      int            `cbor:"queue_depth"`
	QueueCapacity   int            `cbor:"queue_capacity"`
	BacklogLines    int            `cbor:"backlog_lines"`
	LinesSubmitted  uint64         `cbor:"lines_submitted"`
	LinesSuppressed uint64         `cbor:"lines_suppressed"`
	LinesDropped    uint64         `cbor:"lines_dropped"`
	LinesBroadcast  uint64         `cbor:"lines_broadcast"`
	Archive         *archiveStatus `cbor:"archive,omitempty"`
}

// archiveStatus is present in the status response only when the
// archive is enabled.
type archiveStatus struct {
	Directory string `cbor:"directory"`
	Segments  uint64 `cbor:"segments"`
	Lines     uint64 `cbor:"lines"`
	Bytes     uint64 `cbor:"bytes"`
}

// rulesResponse is the wire format for the "rules" action.
type rulesResponse struct {
	Rules []string `cbor:"rules"`
}

// registerActions registers the daemon's socket API actions. Both are
// unauthenticated: the socket's filesystem permissions are the access
// control.
func (d *Daemon) registerActions(server *service.SocketServer) {
	server.Handle("status", d.handleStatus)
	server.Handle("rules", d.handleRules)
}

// handleStatus reports counters from every stage of the pipeline. The
// arithmetic identity submitted = suppressed + dropped + queued +
// broadcast holds only when the stream is idle; under load the stages
// are sampled at slightly different instants.
func (d *Daemon) handleStatus(_ context.Context, _ []byte) (any, error) {
	response := &statusResponse{
		UptimeSeconds:   d.clock.Now().Sub(d.startedAt).Seconds(),
		Subscribers:     d.registry.Len(),
		QueueDepth:      d.queue.Depth(),
		QueueCapacity:   d.queue.Capacity(),
		BacklogLines:    d.backlog.Len(),
		LinesSubmitted:  d.pipeline.LinesSubmitted(),
		LinesSuppressed: d.pipeline.LinesSuppressed(),
		LinesDropped:    d.queue.Dropped(),
		LinesBroadcast:  d.broadcaster.LinesBroadcast(),
	}
	if d.archiveWriter != nil {
		response.Archive = &archiveStatus{
			Directory: d.config.Archive.Directory,
			Segments:  d.archiveWriter.SegmentsCompleted(),
			Lines:     d.archiveWriter.LinesArchived(),
			Bytes:     d.archiveWriter.BytesArchived(),
		}
	}
	return response, nil
}

// handleRules returns the active suppression rules.
func (d *Daemon) handleRules(_ context.Context, _ []byte) (any, error) {
	return &rulesResponse{Rules: d.filter.Rules()}, nil
}
