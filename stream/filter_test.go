// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import "testing"

func TestFilterShouldForward(t *testing.T) {
	filter := NewFilter(DefaultFilterRules)

	tests := []struct {
		name string
		line string
		want bool
	}{
		{
			name: "plain application line",
			line: "2024-01-01 12:00:00 - INFO - hello",
			want: true,
		},
		{
			name: "health check access log",
			line: `2024-01-01 12:00:01 - INFO - GET /health status=200`,
			want: false,
		},
		{
			name: "favicon request",
			line: "2024-01-01 12:00:02 - INFO - GET /favicon.ico status=404",
			want: false,
		},
		{
			name: "proxy pass-through marker",
			line: "2024-01-01 12:00:03 - DEBUG - proxy pass-through for /api/users",
			want: false,
		},
		{
			name: "credential refresh start",
			line: "2024-01-01 12:00:04 - INFO - refreshing upstream credentials",
			want: false,
		},
		{
			name: "credential refresh done",
			line: "2024-01-01 12:00:05 - INFO - upstream credentials refreshed",
			want: false,
		},
		{
			name: "rule match mid-line",
			line: "prefix /health suffix",
			want: false,
		},
		{
			name: "case sensitive: different case passes",
			line: "2024-01-01 12:00:06 - INFO - GET /HEALTH",
			want: true,
		},
		{
			name: "healthy is not /health",
			line: "2024-01-01 12:00:07 - INFO - upstream reported healthy",
			want: true,
		},
		{
			name: "empty line",
			line: "",
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter.ShouldForward(tt.line); got != tt.want {
				t.Errorf("ShouldForward(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestFilterEmptyRulesForwardsEverything(t *testing.T) {
	filter := NewFilter(nil)

	for _, line := range []string{"", "GET /health", "anything at all"} {
		if !filter.ShouldForward(line) {
			t.Errorf("ShouldForward(%q) = false with empty rule list, want true", line)
		}
	}
}

func TestFilterDeterministic(t *testing.T) {
	filter := NewFilter([]string{"noise"})
	line := "some noise here"

	for range 100 {
		if filter.ShouldForward(line) {
			t.Fatal("ShouldForward flipped for an unchanged line")
		}
	}
}

func TestFilterCopiesRules(t *testing.T) {
	rules := []string{"/health"}
	filter := NewFilter(rules)

	// Mutating the caller's slice must not change filter behavior.
	rules[0] = "something-else"
	if filter.ShouldForward("GET /health") {
		t.Error("filter observed mutation of the caller's rule slice")
	}

	// Mutating the returned copy must not either.
	returned := filter.Rules()
	returned[0] = "also-something-else"
	if filter.ShouldForward("GET /health") {
		t.Error("filter observed mutation of a Rules() copy")
	}
}

func TestFilterRulesOrder(t *testing.T) {
	rules := []string{"bravo", "alpha", "charlie"}
	filter := NewFilter(rules)

	got := filter.Rules()
	if len(got) != len(rules) {
		t.Fatalf("Rules() length = %d, want %d", len(got), len(rules))
	}
	for i, rule := range rules {
		if got[i] != rule {
			t.Errorf("Rules()[%d] = %q, want %q", i, got[i], rule)
		}
	}
}
