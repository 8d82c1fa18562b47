// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

// Tailcast is the terminal client for tailcastd. "tailcast follow"
// renders the daemon's websocket stream in an interactive viewer with
// scrollback, fuzzy filtering, and automatic reconnection; "tailcast
// status" queries the daemon's admin socket for stream counters and
// the active suppression rules.
//
// The viewer keeps a bounded scrollback (--buffer lines), colors lines
// by parsed level, and highlights fuzzy filter matches. Scrolling up
// pauses follow mode; pressing G or f resumes it.
package main
