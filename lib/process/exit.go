// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers shared by the two
// Tailcast binaries.
//
// main functions stay minimal: call run, hand any error to [Fatal].
// Once a binary's logger exists, failures report through it instead;
// Fatal covers the window before that.
package process

import (
	"fmt"
	"os"
	"path/filepath"
)

// Fatal prints err in the Unix "program: message" form and exits 1.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(os.Args[0]), err)
	os.Exit(1)
}
