// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock injects the daemon's time sources so tests can pin
// them. The stream's line handler stamps each rendered line with
// Now, the archive writer names segments from it, and the websocket
// keepalive loop paces pings with NewTicker; all three take a Clock
// rather than calling the time package, so a test asserting on a
// rendered line or a ping can state the exact instant involved.
//
// Real() passes through to the time package. Fake(t) stands still at
// t until Advance moves it; WaitForTimers lets a test wait for a
// goroutine to register its ticker before advancing, removing the
// race between registration and the advance that should fire it.
package clock
