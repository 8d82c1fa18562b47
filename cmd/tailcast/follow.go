// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	// defaultStreamURL matches the daemon's default listen address and
	// stream endpoint.
	defaultStreamURL = "ws://127.0.0.1:8765/ws/logs"

	// defaultBufferLines is the scrollback cap. Old lines fall off the
	// top; the daemon's backlog replay refills recent history on
	// reconnect.
	defaultBufferLines = 2000
)

func followCommand() *Command {
	var url string
	var noColor bool
	var bufferLines int

	return &Command{
		Name:    "follow",
		Summary: "Stream logs in an interactive terminal viewer",
		Usage:   "tailcast follow [flags]",
		Description: `Connects to the daemon's websocket stream and renders it live:
autoscrolling log pane with level coloring, a fuzzy filter over the
scrollback, and automatic reconnection with backoff. The daemon
replays its recent backlog on every connect, so the viewer starts
with history instead of an empty screen.`,
		Examples: []Example{
			{
				Description: "Follow the local daemon",
				Command:     "tailcast follow",
			},
			{
				Description: "Follow a daemon on another host",
				Command:     "tailcast follow --url ws://build-3:8765/ws/logs",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("follow", pflag.ContinueOnError)
			flagSet.StringVar(&url, "url", defaultStreamURL, "websocket stream URL")
			flagSet.BoolVar(&noColor, "no-color", false, "disable colored output")
			flagSet.IntVar(&bufferLines, "buffer", defaultBufferLines, "maximum lines kept in the scrollback")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runFollow(url, noColor, bufferLines)
		},
	}
}

// runFollow starts the stream source and runs the TUI until the user
// quits. The alt screen keeps the shell's scrollback intact.
func runFollow(url string, noColor bool, bufferLines int) error {
	if bufferLines < 1 {
		return fmt.Errorf("--buffer must be at least 1, got %d", bufferLines)
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("follow requires a terminal (connect to %s directly for scripted use)", url)
	}
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	source := newStreamSource(url)
	defer source.Close()

	model := newFollowModel(source.Events(), url, bufferLines)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := program.Run()
	return err
}
