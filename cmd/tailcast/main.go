// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/tailcast/tailcast/lib/process"
	"github.com/tailcast/tailcast/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	return rootCommand().Execute(os.Args[1:])
}

// rootCommand builds the tailcast CLI command tree.
func rootCommand() *Command {
	return &Command{
		Name: "tailcast",
		Description: `Tailcast: live log streaming client.

Follow a tailcastd log stream in the terminal and inspect a running
daemon over its admin socket.`,
		Subcommands: []*Command{
			followCommand(),
			statusCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func([]string) error {
					fmt.Printf("tailcast %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []Example{
			{
				Description: "Follow the local daemon's stream",
				Command:     "tailcast follow",
			},
			{
				Description: "Follow a remote daemon",
				Command:     "tailcast follow --url ws://build-3:8765/ws/logs",
			},
			{
				Description: "Show daemon counters and suppression rules",
				Command:     "tailcast status",
			},
		},
	}
}
