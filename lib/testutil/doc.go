// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds the test helpers shared across Tailcast
// packages: [SocketDir] for Unix socket paths short enough for
// sun_path, and [RequireReceive] / [RequireClosed] for channel waits
// that fail instead of hanging when the awaited event never happens.
//
// The Require helpers are the one sanctioned use of real wall-clock
// timeouts in the test suite; production timing goes through
// lib/clock so tests can drive it.
package testutil
