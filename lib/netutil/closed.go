// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies connection teardown errors and reads
// HTTP error bodies for diagnostics. Producers and subscribers come
// and go constantly in a log streamer; the daemon needs to tell a
// departing peer from a broken one.
package netutil

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// IsExpectedCloseError reports whether err is one of the ways a peer
// normally hangs up: EOF from a clean close, net.ErrClosed when our
// own side shut the socket under an in-flight read, ECONNRESET or
// EPIPE when the peer full-closed while bytes were still moving.
// These are traffic, not faults; callers log them at debug or not at
// all.
func IsExpectedCloseError(err error) bool {
	var errno syscall.Errno
	switch {
	case err == nil:
		return false
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		return true
	case errors.As(err, &errno):
		return errno == syscall.ECONNRESET || errno == syscall.EPIPE
	}
	return false
}
