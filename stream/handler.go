// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tailcast/tailcast/lib/clock"
)

// TimestampLayout is the wire form of a line's timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// LineHandler is a slog.Handler that renders each record as a stream
// line and submits it to the pipeline. Installing it next to the
// stderr handler lets the process watch its own logs: access lines,
// connect and disconnect events, and errors all enter the stream,
// with the filter keeping health-check noise out.
//
// The wire form is
//
//	<timestamp> - <LEVEL> - <message>
//
// with TimestampLayout timestamps and slog level names. Attrs, when
// present, follow the message as " key=value" pairs; a record without
// attrs renders as exactly the bare line. Timestamps come from the
// injected clock rather than the record, so tests with a fake clock
// control the rendered line completely.
type LineHandler struct {
	pipeline     *Pipeline
	clock        clock.Clock
	level        slog.Leveler
	preformatted string
	groupPrefix  string
}

// NewLineHandler creates a handler that submits records at or above
// level to pipeline. Panics if pipeline or clk is nil.
func NewLineHandler(pipeline *Pipeline, clk clock.Clock, level slog.Leveler) *LineHandler {
	if pipeline == nil {
		panic("stream.LineHandler: pipeline is required")
	}
	if clk == nil {
		panic("stream.LineHandler: clock is required")
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &LineHandler{pipeline: pipeline, clock: clk, level: level}
}

// Enabled reports whether records at level reach the stream.
func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle renders the record and submits it. Never returns an error:
// the pipeline accepts every line or drops it silently.
func (h *LineHandler) Handle(_ context.Context, record slog.Record) error {
	var builder strings.Builder
	builder.WriteString(h.clock.Now().Format(TimestampLayout))
	builder.WriteString(" - ")
	builder.WriteString(record.Level.String())
	builder.WriteString(" - ")
	builder.WriteString(record.Message)
	builder.WriteString(h.preformatted)
	record.Attrs(func(attr slog.Attr) bool {
		appendAttr(&builder, h.groupPrefix, attr)
		return true
	})
	h.pipeline.Submit(builder.String())
	return nil
}

// WithAttrs renders attrs once, under the groups open at this point,
// and carries the text into every derived record.
func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	var builder strings.Builder
	builder.WriteString(h.preformatted)
	for _, attr := range attrs {
		appendAttr(&builder, h.groupPrefix, attr)
	}
	next.preformatted = builder.String()
	return &next
}

// WithGroup qualifies the keys of subsequent attrs with name.
func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groupPrefix = h.groupPrefix + name + "."
	return &next
}

// appendAttr writes one attr as " prefixkey=value", flattening group
// values into dotted keys and skipping empty attrs, matching the
// built-in handlers' treatment of them.
func appendAttr(builder *strings.Builder, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		groupAttrs := attr.Value.Group()
		if len(groupAttrs) == 0 {
			return
		}
		childPrefix := prefix
		if attr.Key != "" {
			childPrefix = prefix + attr.Key + "."
		}
		for _, child := range groupAttrs {
			appendAttr(builder, childPrefix, child)
		}
		return
	}
	if attr.Equal(slog.Attr{}) {
		return
	}
	fmt.Fprintf(builder, " %s%s=%v", prefix, attr.Key, attr.Value)
}
