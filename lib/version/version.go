// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries the build identity stamped into Tailcast
// binaries.
//
// Release builds inject the package variables through -ldflags:
//
//	go build -ldflags "-X github.com/tailcast/tailcast/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Development builds skip the stamping; [Info] then falls back to the
// VCS metadata the Go toolchain embeds on its own, so --version stays
// truthful either way.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Injected via -ldflags -X. Untouched values mean a development
// build.
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
)

// Info renders the one-line --version form: version, commit with a
// -dirty suffix when the tree had uncommitted changes, build time.
func Info() string {
	commit, dirty, when := buildIdentity()
	if dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, when)
}

// Full is Info plus the Go runtime and platform, the form bug
// reports ask for.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// buildIdentity resolves commit, dirtiness, and build time from the
// ldflags stamps, consulting the toolchain's embedded VCS settings
// when the stamps are absent.
func buildIdentity() (commit string, dirty bool, when string) {
	commit, dirty, when = GitCommit, GitDirty == "true", BuildTime
	if commit != "unknown" {
		return commit, dirty, when
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, dirty, when
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if setting.Value != "" {
				commit = setting.Value
				if len(commit) > 12 {
					commit = commit[:12]
				}
			}
		case "vcs.modified":
			dirty = setting.Value == "true"
		case "vcs.time":
			when = setting.Value
		}
	}
	return commit, dirty, when
}
