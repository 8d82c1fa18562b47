// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import "io"

// maxErrorBodyBytes caps how much of a rejection body ends up in an
// error message. Failed handshakes answer with a short JSON or HTML
// snippet; anything past a few KB is noise in a log line.
const maxErrorBodyBytes = 8 << 10

// ErrorBody reads the body of a failed HTTP response for inclusion in
// an error message. Read failures are swallowed: a partial or empty
// body still beats none when the alternative is losing the error
// entirely.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	return string(data)
}
