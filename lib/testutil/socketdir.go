// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"testing"
)

// SocketDir returns a fresh directory for a test's Unix socket,
// removed when the test finishes. It lives directly under /tmp rather
// than t.TempDir() because sockaddr_un caps socket paths at 108 bytes
// and CI temp roots routinely blow past that once a test name is
// appended.
func SocketDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "tailcast-*")
	if err != nil {
		t.Fatalf("creating socket directory: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}
