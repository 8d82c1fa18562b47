// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/charmbracelet/bubbles/key"

// followKeyMap is the key table for the follow TUI. Update matches
// against the fields; the status bar renders the help text of the
// bindings ShortHelp returns.
type followKeyMap struct {
	// Scrollback. Moving up pauses autoscroll; Newest jumps back to
	// the live edge and resumes it.
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Oldest   key.Binding
	Newest   key.Binding

	// FollowToggle pauses or resumes autoscroll in place.
	FollowToggle key.Binding

	FilterActivate key.Binding
	FilterClear    key.Binding

	Quit key.Binding
}

// ShortHelp is the slice of bindings worth a permanent reminder.
// Three fit comfortably next to the counters; the scrolling keys
// follow pager convention and explain themselves.
func (k followKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.FilterActivate, k.FollowToggle, k.Quit}
}

// defaultFollowKeys mixes vim motions with the terminal's own
// navigation keys, so both kinds of muscle memory land somewhere.
var defaultFollowKeys = followKeyMap{
	Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "scroll up")),
	Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "scroll down")),
	PageUp:   key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("C-u", "half page up")),
	PageDown: key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("C-d", "half page down")),
	Oldest:   key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "oldest")),
	Newest:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "newest")),

	FollowToggle: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow")),

	FilterActivate: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	FilterClear:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear filter")),

	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}
