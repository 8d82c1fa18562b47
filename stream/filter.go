// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import "strings"

// DefaultFilterRules are the suppression rules the daemon ships with.
// They target the self-noise a fronting proxy or health checker emits
// on every poll; the config file can replace the whole list.
var DefaultFilterRules = []string{
	"/health",
	"/favicon.ico",
	"proxy pass-through",
	"refreshing upstream credentials",
	"upstream credentials refreshed",
}

// Filter decides which lines enter the stream. A line is suppressed
// when any rule occurs as a substring of the line; matching is
// case-sensitive because the rules target exact markers the process
// itself emits.
//
// The rule list is fixed at construction. Filter has no other state:
// the same line always produces the same answer.
type Filter struct {
	rules []string
}

// NewFilter creates a filter from an ordered rule list. The slice is
// copied; later mutation of the caller's slice has no effect. An
// empty rule list forwards everything.
func NewFilter(rules []string) *Filter {
	copied := make([]string, len(rules))
	copy(copied, rules)
	return &Filter{rules: copied}
}

// ShouldForward reports whether line should enter the stream. Returns
// false when any rule matches.
func (f *Filter) ShouldForward(line string) bool {
	for _, rule := range f.rules {
		if strings.Contains(line, rule) {
			return false
		}
	}
	return true
}

// Rules returns a copy of the active rule list, in order. Used by the
// admin socket's "rules" action.
func (f *Filter) Rules() []string {
	copied := make([]string, len(f.rules))
	copy(copied, f.rules)
	return copied
}
