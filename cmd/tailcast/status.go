// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/tailcast/tailcast/lib/service"
)

// defaultSocketPath matches the daemon's default admin socket location.
const defaultSocketPath = "/run/tailcast/tailcastd.sock"

// queryTimeout bounds the two admin socket round-trips.
const queryTimeout = 10 * time.Second

// daemonStatus mirrors the CBOR response of the daemon's status action.
// Defined here because the server-side type lives in the daemon binary;
// the wire format is the contract.
type daemonStatus struct {
	UptimeSeconds   float64       `cbor:"uptime_seconds" json:"uptime_seconds"`
	Subscribers     int           `cbor:"subscribers" json:"subscribers"`
	QueueDepth      int           `cbor:"queue_depth" json:"queue_depth"`
	QueueCapacity   int           `cbor:"queue_capacity" json:"queue_capacity"`
	BacklogLines    int           `cbor:"backlog_lines" json:"backlog_lines"`
	LinesSubmitted  uint64        `cbor:"lines_submitted" json:"lines_submitted"`
	LinesSuppressed uint64        `cbor:"lines_suppressed" json:"lines_suppressed"`
	LinesDropped    uint64        `cbor:"lines_dropped" json:"lines_dropped"`
	LinesBroadcast  uint64        `cbor:"lines_broadcast" json:"lines_broadcast"`
	Archive         *archiveStats `cbor:"archive,omitempty" json:"archive,omitempty"`
}

// archiveStats mirrors the archive block of the status response.
type archiveStats struct {
	Directory string `cbor:"directory" json:"directory"`
	Segments  uint64 `cbor:"segments" json:"segments"`
	Lines     uint64 `cbor:"lines" json:"lines"`
	Bytes     uint64 `cbor:"bytes" json:"bytes"`
}

// daemonRules mirrors the CBOR response of the daemon's rules action.
type daemonRules struct {
	Rules []string `cbor:"rules" json:"rules"`
}

func statusCommand() *Command {
	var socketPath string
	var outputJSON bool

	return &Command{
		Name:    "status",
		Summary: "Show daemon counters and suppression rules",
		Usage:   "tailcast status [flags]",
		Description: `Queries the daemon's admin socket and prints stream counters
(submitted, suppressed, dropped, broadcast), subscriber and queue
state, archive totals when archiving is enabled, and the active
suppression rules.`,
		Examples: []Example{
			{
				Description: "Query the local daemon",
				Command:     "tailcast status",
			},
			{
				Description: "Query a daemon on a non-default socket",
				Command:     "tailcast status --socket /tmp/tailcast-dev.sock",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			flagSet.StringVar(&socketPath, "socket", defaultSocketPath, "daemon admin socket path")
			flagSet.BoolVar(&outputJSON, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runStatus(os.Stdout, socketPath, outputJSON)
		},
	}
}

// runStatus queries the daemon and renders the result to out.
func runStatus(out io.Writer, socketPath string, outputJSON bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	client := service.NewServiceClient(socketPath)

	var status daemonStatus
	if err := client.Call(ctx, "status", nil, &status); err != nil {
		return fmt.Errorf("querying daemon status: %w", err)
	}

	var rules daemonRules
	if err := client.Call(ctx, "rules", nil, &rules); err != nil {
		return fmt.Errorf("querying suppression rules: %w", err)
	}
	if rules.Rules == nil {
		// Serialize as [] rather than null.
		rules.Rules = []string{}
	}

	if outputJSON {
		combined := struct {
			daemonStatus
			Rules []string `json:"rules"`
		}{daemonStatus: status, Rules: rules.Rules}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(combined)
	}

	renderStatus(out, status, rules.Rules)
	return nil
}

// renderStatus writes the human-readable status listing.
func renderStatus(out io.Writer, status daemonStatus, rules []string) {
	uptime := time.Duration(status.UptimeSeconds * float64(time.Second)).Truncate(time.Second)

	tw := tabwriter.NewWriter(out, 2, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "uptime:\t%s\n", uptime)
	fmt.Fprintf(tw, "subscribers:\t%d\n", status.Subscribers)
	fmt.Fprintf(tw, "queue:\t%d/%d (%d dropped)\n",
		status.QueueDepth, status.QueueCapacity, status.LinesDropped)
	fmt.Fprintf(tw, "backlog:\t%d lines\n", status.BacklogLines)
	fmt.Fprintf(tw, "submitted:\t%d (%d suppressed)\n",
		status.LinesSubmitted, status.LinesSuppressed)
	fmt.Fprintf(tw, "broadcast:\t%d\n", status.LinesBroadcast)
	if status.Archive != nil {
		fmt.Fprintf(tw, "archive:\t%s (%d segments, %d lines, %s)\n",
			status.Archive.Directory, status.Archive.Segments,
			status.Archive.Lines, formatBytes(status.Archive.Bytes))
	}
	if len(rules) == 0 {
		fmt.Fprintf(tw, "rules:\t(none)\n")
	} else {
		fmt.Fprintf(tw, "rules:\t%s\n", strings.Join(rules, ", "))
	}
	tw.Flush()
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(count uint64) string {
	const unit = 1024
	if count < unit {
		return fmt.Sprintf("%d B", count)
	}
	value, exponent := float64(count), 0
	for value >= unit && exponent < 5 {
		value /= unit
		exponent++
	}
	return fmt.Sprintf("%.1f %ciB", value, "KMGTP"[exponent-1])
}
