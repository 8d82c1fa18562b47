// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/charmbracelet/lipgloss"

// followTheme defines the color palette for the follow TUI. All colors
// use lipgloss ANSI 256-color codes for broad terminal compatibility.
type followTheme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Log level colors, applied to the level token of each line.
	LevelDebug    lipgloss.Color
	LevelInfo     lipgloss.Color
	LevelWarning  lipgloss.Color
	LevelError    lipgloss.Color
	LevelCritical lipgloss.Color

	// Connection state indicator in the status bar.
	StateLive         lipgloss.Color
	StateConnecting   lipgloss.Color
	StateReconnecting lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	HelpText         lipgloss.Color

	// Background tint for characters matched by the fuzzy filter.
	MatchBackground lipgloss.Color
}

// LevelColor returns the color for a log level token. Recognizes the
// standard level names (including the WARN/FATAL short forms some
// producers emit) and returns FaintText for unknown values.
func (theme followTheme) LevelColor(level string) lipgloss.Color {
	switch level {
	case "DEBUG":
		return theme.LevelDebug
	case "INFO":
		return theme.LevelInfo
	case "WARNING", "WARN":
		return theme.LevelWarning
	case "ERROR":
		return theme.LevelError
	case "CRITICAL", "FATAL":
		return theme.LevelCritical
	default:
		return theme.FaintText
	}
}

// defaultFollowTheme is the built-in dark-terminal color scheme.
var defaultFollowTheme = followTheme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	LevelDebug:    lipgloss.Color("240"), // dim gray
	LevelInfo:     lipgloss.Color("114"), // green
	LevelWarning:  lipgloss.Color("220"), // amber
	LevelError:    lipgloss.Color("196"), // red
	LevelCritical: lipgloss.Color("201"), // magenta

	StateLive:         lipgloss.Color("114"),
	StateConnecting:   lipgloss.Color("245"),
	StateReconnecting: lipgloss.Color("220"),

	HeaderForeground: lipgloss.Color("255"),
	HelpText:         lipgloss.Color("241"),

	MatchBackground: lipgloss.Color("58"), // dark amber
}
