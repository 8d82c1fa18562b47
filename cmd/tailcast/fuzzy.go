// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// fuzzyResult holds the outcome of matching a filter pattern against a
// single line. Score is fzf's match quality (higher is better, zero
// means no match). Positions are the rune indices in the line that
// matched, used for highlight rendering.
type fuzzyResult struct {
	Score     int
	Positions []int
}

// newFuzzySlab allocates the scratch memory fzf's matcher reuses across
// calls. One slab per model; the matcher is invoked from the bubbletea
// update loop only, so no synchronization is needed.
func newFuzzySlab() *util.Slab {
	return util.MakeSlab(100*1024, 2048)
}

// fuzzyMatch runs fzf's FuzzyMatchV2 algorithm against a line.
// Matching is case-insensitive: the algorithm lowercases the line on
// the fly, and the pattern is lowercased here because the matcher
// expects a pre-lowered pattern in case-insensitive mode. An empty
// pattern yields a zero result. A nil slab is allowed; the matcher
// then allocates per call.
func fuzzyMatch(text string, pattern []rune, slab *util.Slab) fuzzyResult {
	if len(pattern) == 0 {
		return fuzzyResult{}
	}

	lowered := []rune(strings.ToLower(string(pattern)))
	chars := util.ToChars([]byte(text))

	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, lowered, true, slab)
	if result.Score <= 0 {
		return fuzzyResult{}
	}

	matched := fuzzyResult{Score: result.Score}
	if positions != nil {
		matched.Positions = *positions
	}
	return matched
}
