// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// failer is the slice of testing.T these helpers need. Taking an
// interface keeps the package importable from helpers that wrap
// testing.T as well as from tests directly.
type failer interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive reads one value from ch, failing the test if nothing
// arrives within timeout or the channel closes first. Tests use this
// instead of a bare receive so a bug that stops a send from happening
// fails the test instead of hanging it.
//
//	line := testutil.RequireReceive(t, sub.Lines(), 5*time.Second, "fanout delivery")
func RequireReceive[T any](t failer, ch <-chan T, timeout time.Duration, msgAndArgs ...any) T {
	t.Helper()
	guard := time.NewTimer(timeout) //nolint:realclock test hang prevention
	defer guard.Stop()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed before sending: %s", describe(msgAndArgs))
		}
		return v
	case <-guard.C:
		t.Fatalf("nothing received within %v: %s", timeout, describe(msgAndArgs))
	}
	panic("unreachable")
}

// RequireClosed waits for ch to close (a receive also satisfies it),
// failing the test after timeout. Readiness and shutdown channels
// signal by closing, so this is the waiter for those.
//
//	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "http server ready")
func RequireClosed(t failer, ch <-chan struct{}, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	guard := time.NewTimer(timeout) //nolint:realclock test hang prevention
	defer guard.Stop()
	select {
	case <-ch:
	case <-guard.C:
		t.Fatalf("channel still open after %v: %s", timeout, describe(msgAndArgs))
	}
}

// describe renders the trailing msgAndArgs of a Require helper: a
// format string with arguments, a single value, or nothing.
func describe(parts []any) string {
	switch {
	case len(parts) == 0:
		return "no detail given"
	case len(parts) > 1:
		if format, ok := parts[0].(string); ok {
			return fmt.Sprintf(format, parts[1:]...)
		}
	}
	return fmt.Sprint(parts...)
}
