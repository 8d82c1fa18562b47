// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/junegunn/fzf/src/util"
)

// streamEventMsg wraps a streamSource event for delivery through the
// bubbletea message loop.
type streamEventMsg struct {
	event streamEvent
}

// connState tracks the websocket connection lifecycle for the status bar.
type connState int

const (
	stateConnecting connState = iota
	stateLive
	stateReconnecting
)

// logLine is one line of the stream with its parsed fields and cached
// render state. timestamp is empty when the line does not follow the
// daemon's "<timestamp> - <LEVEL> - <message>" shape; such lines render
// unstyled but still participate in filtering.
type logLine struct {
	raw       string
	timestamp string
	level     string
	message   string

	// Cache, valid while generation equals the model's
	// filterGeneration. matched reports whether the line survives the
	// current filter; rendered is the styled text (empty when the line
	// is filtered out).
	generation uint64
	matched    bool
	rendered   string
}

// parseLogLine splits a raw line into the daemon's timestamp, level,
// and message fields. Lines that do not have all three fields come
// back with only raw set.
func parseLogLine(raw string) logLine {
	parts := strings.SplitN(raw, " - ", 3)
	if len(parts) != 3 {
		return logLine{raw: raw}
	}
	return logLine{raw: raw, timestamp: parts[0], level: parts[1], message: parts[2]}
}

// followFilter manages the fuzzy filter input state. The caller routes
// keystrokes to HandleRune/HandleBackspace and reads Input directly.
type followFilter struct {
	// Input is the current filter query text.
	Input string

	// Active is true when the filter prompt has keyboard focus
	// (the user pressed / to start typing).
	Active bool
}

// HandleRune appends a character to the filter input. Returns true if
// the input changed.
func (filter *followFilter) HandleRune(character rune) bool {
	filter.Input += string(character)
	return true
}

// HandleBackspace removes the last character from the filter input.
// Returns true if the input changed.
func (filter *followFilter) HandleBackspace() bool {
	if len(filter.Input) == 0 {
		return false
	}
	runes := []rune(filter.Input)
	filter.Input = string(runes[:len(runes)-1])
	return true
}

// Clear resets the filter input and deactivates it.
func (filter *followFilter) Clear() {
	filter.Input = ""
	filter.Active = false
}

// followModel is the top-level bubbletea model for the follow TUI. It
// keeps a capped scrollback of received lines, renders them through a
// viewport with optional autoscroll, and narrows the view with a fuzzy
// filter.
type followModel struct {
	events <-chan streamEvent
	url    string
	theme  followTheme
	keys   followKeyMap

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	viewport viewport.Model

	// Scrollback. lines holds the most recent maxLines entries;
	// received counts every line ever delivered.
	lines    []logLine
	maxLines int
	received uint64

	// Filter state. filterGeneration increments on every filter text
	// change and invalidates the per-line match/render cache.
	// matchCount is the number of lines surviving the current filter,
	// recomputed by refreshViewport.
	filter           followFilter
	filterGeneration uint64
	matchCount       int
	slab             *util.Slab

	// autoscroll keeps the viewport pinned to the newest line. Any
	// upward navigation pauses it; f or G resumes.
	autoscroll bool

	connState connState
	lastError string
}

// newFollowModel creates a followModel reading from the given event
// channel. url is only displayed in the status bar; the channel's
// streamSource owns the actual connection.
func newFollowModel(events <-chan streamEvent, url string, maxLines int) followModel {
	return followModel{
		events:           events,
		url:              url,
		theme:            defaultFollowTheme,
		keys:             defaultFollowKeys,
		maxLines:         maxLines,
		filterGeneration: 1,
		slab:             newFuzzySlab(),
		autoscroll:       true,
		connState:        stateConnecting,
	}
}

// Init implements tea.Model. Starts listening for stream events.
func (model followModel) Init() tea.Cmd {
	if model.events == nil {
		return nil
	}
	return listenForStreamEvent(model.events)
}

// listenForStreamEvent returns a tea.Cmd that blocks until an event
// arrives on the source channel, then delivers it as a streamEventMsg.
func listenForStreamEvent(channel <-chan streamEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-channel
		if !ok {
			return nil
		}
		return streamEventMsg{event: event}
	}
}

// Update implements tea.Model. Routes keyboard events based on whether
// the filter prompt has focus and handles stream and layout changes.
func (model followModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		// When the filter prompt is active, route all input to it.
		if model.filter.Active {
			return model.handleFilterKeys(message)
		}

		switch {
		case key.Matches(message, model.keys.Quit):
			return model, tea.Quit

		case key.Matches(message, model.keys.FollowToggle):
			model.autoscroll = !model.autoscroll
			if model.autoscroll {
				model.viewport.GotoBottom()
			}

		case key.Matches(message, model.keys.FilterActivate):
			model.filter.Active = true

		case key.Matches(message, model.keys.FilterClear):
			if model.filter.Input != "" {
				model.filter.Clear()
				model.bumpFilter()
			}

		case key.Matches(message, model.keys.Up):
			model.autoscroll = false
			model.viewport.LineUp(1)

		case key.Matches(message, model.keys.Down):
			model.viewport.LineDown(1)

		case key.Matches(message, model.keys.PageUp):
			model.autoscroll = false
			model.viewport.HalfViewUp()

		case key.Matches(message, model.keys.PageDown):
			model.viewport.HalfViewDown()

		case key.Matches(message, model.keys.Oldest):
			model.autoscroll = false
			model.viewport.GotoTop()

		case key.Matches(message, model.keys.Newest):
			model.autoscroll = true
			model.viewport.GotoBottom()
		}

	case tea.MouseMsg:
		switch message.Button {
		case tea.MouseButtonWheelUp:
			model.autoscroll = false
			model.viewport.LineUp(3)
		case tea.MouseButtonWheelDown:
			model.viewport.LineDown(3)
		}

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.viewport.Width = message.Width
		model.viewport.Height = max(message.Height-1, 1)
		model.refreshViewport()

	case streamEventMsg:
		return model.handleStreamEvent(message)
	}
	return model, nil
}

// handleFilterKeys processes keystrokes while the filter prompt has
// focus. Regular characters go to the input, Esc clears and exits,
// Enter confirms the filter and returns focus to scrolling.
func (model followModel) handleFilterKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case message.Type == tea.KeyCtrlC:
		return model, tea.Quit

	case key.Matches(message, model.keys.FilterClear):
		hadInput := model.filter.Input != ""
		model.filter.Clear()
		if hadInput {
			model.bumpFilter()
		}
		return model, nil

	case message.Type == tea.KeyEnter:
		model.filter.Active = false
		return model, nil

	case message.Type == tea.KeyBackspace:
		if model.filter.HandleBackspace() {
			model.bumpFilter()
		}
		return model, nil

	case message.Type == tea.KeyRunes || message.Type == tea.KeySpace:
		for _, character := range message.Runes {
			model.filter.HandleRune(character)
		}
		model.bumpFilter()
		return model, nil
	}

	return model, nil
}

// handleStreamEvent applies a stream event and re-arms the listener.
func (model followModel) handleStreamEvent(message streamEventMsg) (tea.Model, tea.Cmd) {
	event := message.event
	switch event.kind {
	case streamEventLine:
		model.appendLine(event.line)
	case streamEventConnected:
		model.connState = stateLive
		model.lastError = ""
	case streamEventDisconnected:
		model.connState = stateReconnecting
		if event.err != nil {
			model.lastError = event.err.Error()
		}
	}
	return model, listenForStreamEvent(model.events)
}

// appendLine adds a received line to the scrollback and refreshes the
// view. Trimming runs in batches: slack above the cap keeps the copy
// amortized instead of per-append once the buffer is full.
func (model *followModel) appendLine(raw string) {
	model.lines = append(model.lines, parseLogLine(raw))
	model.received++

	if len(model.lines) > model.maxLines+model.maxLines/4 {
		trimmed := make([]logLine, model.maxLines)
		copy(trimmed, model.lines[len(model.lines)-model.maxLines:])
		model.lines = trimmed
	}
	model.refreshViewport()
}

// bumpFilter invalidates the per-line match cache after a filter text
// change and refreshes the view.
func (model *followModel) bumpFilter() {
	model.filterGeneration++
	model.refreshViewport()
}

// ensureLine brings a line's match/render cache up to date with the
// current filter generation. With no filter text every line matches
// and renders plain; with filter text the line is fuzzy-matched and
// rendered with highlight positions, or marked filtered-out.
func (model *followModel) ensureLine(line *logLine) {
	if line.generation == model.filterGeneration {
		return
	}
	line.generation = model.filterGeneration

	if model.filter.Input == "" {
		line.matched = true
		line.rendered = renderLogLine(*line, nil, model.theme)
		return
	}

	result := fuzzyMatch(line.raw, []rune(model.filter.Input), model.slab)
	line.matched = result.Score > 0
	if line.matched {
		line.rendered = renderLogLine(*line, result.Positions, model.theme)
	} else {
		line.rendered = ""
	}
}

// refreshViewport rebuilds the viewport content from the scrollback,
// applying the filter and truncating each line to the terminal width.
// When autoscroll is on, the viewport stays pinned to the newest line.
func (model *followModel) refreshViewport() {
	if !model.ready {
		return
	}

	var builder strings.Builder
	shown := 0
	for index := range model.lines {
		line := &model.lines[index]
		model.ensureLine(line)
		if !line.matched {
			continue
		}
		if shown > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(ansi.Truncate(line.rendered, model.width, "…"))
		shown++
	}
	model.matchCount = shown

	model.viewport.SetContent(builder.String())
	if model.autoscroll {
		model.viewport.GotoBottom()
	}
}

// View implements tea.Model. The viewport fills all rows except the
// bottom chrome line, which is the status bar normally and the filter
// prompt while it has focus.
func (model followModel) View() string {
	if !model.ready {
		return "connecting to " + model.url + " …"
	}

	chrome := model.statusBarView()
	if model.filter.Active {
		chrome = model.filterBarView()
	}
	return model.viewport.View() + "\n" + chrome
}

// statusBarView renders the bottom status line: connection state,
// line counts, filter and autoscroll indicators on the left, keyboard
// help on the right.
func (model followModel) statusBarView() string {
	theme := model.theme
	faint := lipgloss.NewStyle().Foreground(theme.FaintText)

	var state string
	switch model.connState {
	case stateLive:
		state = lipgloss.NewStyle().Foreground(theme.StateLive).Render("● live")
	case stateConnecting:
		state = lipgloss.NewStyle().Foreground(theme.StateConnecting).
			Render("◌ connecting " + model.url)
	case stateReconnecting:
		state = lipgloss.NewStyle().Foreground(theme.StateReconnecting).Render("◌ reconnecting")
		if model.lastError != "" {
			state += faint.Render(" (" + model.lastError + ")")
		}
	}

	left := " " + state
	if model.filter.Input != "" {
		left += faint.Render(fmt.Sprintf("  filter: %s (%d/%d)",
			model.filter.Input, model.matchCount, len(model.lines)))
	} else {
		left += faint.Render(fmt.Sprintf("  %d lines", model.received))
	}
	if !model.autoscroll {
		left += lipgloss.NewStyle().Foreground(theme.LevelWarning).Render("  paused")
	}

	helpParts := make([]string, 0, 3)
	for _, binding := range model.keys.ShortHelp() {
		helpParts = append(helpParts, binding.Help().Key+" "+binding.Help().Desc)
	}
	help := lipgloss.NewStyle().Foreground(theme.HelpText).
		Render(strings.Join(helpParts, "  "))

	gap := model.width - lipgloss.Width(left) - lipgloss.Width(help) - 1
	if gap < 1 {
		return ansi.Truncate(left, model.width, "…")
	}
	return left + strings.Repeat(" ", gap) + help + " "
}

// filterBarView renders the filter prompt, shown in place of the
// status bar while the filter has focus.
func (model followModel) filterBarView() string {
	style := lipgloss.NewStyle().Foreground(model.theme.NormalText).Width(model.width)
	cursor := lipgloss.NewStyle().
		Foreground(model.theme.HeaderForeground).
		Bold(true).
		Render("▎")

	count := ""
	if model.filter.Input != "" {
		count = lipgloss.NewStyle().Foreground(model.theme.FaintText).
			Render(fmt.Sprintf("  (%d/%d)", model.matchCount, len(model.lines)))
	}
	return style.Render(" / " + model.filter.Input + cursor + count)
}

// lineSegment is a styled span of a rendered log line.
type lineSegment struct {
	text  string
	style lipgloss.Style
}

// renderLogLine renders one line with level coloring. positions are
// rune indices matched by the fuzzy filter; matched characters get a
// background tint on top of their segment color.
func renderLogLine(line logLine, positions []int, theme followTheme) string {
	var segments []lineSegment
	if line.timestamp == "" {
		segments = []lineSegment{
			{line.raw, lipgloss.NewStyle().Foreground(theme.NormalText)},
		}
	} else {
		faint := lipgloss.NewStyle().Foreground(theme.FaintText)
		levelStyle := lipgloss.NewStyle().
			Foreground(theme.LevelColor(line.level)).
			Bold(line.level == "ERROR" || line.level == "CRITICAL")
		segments = []lineSegment{
			{line.timestamp + " - ", faint},
			{line.level, levelStyle},
			{" - ", faint},
			{line.message, lipgloss.NewStyle().Foreground(theme.NormalText)},
		}
	}

	if len(positions) == 0 {
		var result strings.Builder
		for _, segment := range segments {
			result.WriteString(segment.style.Render(segment.text))
		}
		return result.String()
	}

	positionSet := make(map[int]bool, len(positions))
	for _, position := range positions {
		positionSet[position] = true
	}
	return renderSegments(segments, positionSet, theme.MatchBackground)
}

// renderSegments renders styled segments with character-level highlight
// at the given rune positions (indices into the concatenated text).
// Consecutive runs of same-style characters are batched into a single
// Render call to keep ANSI output compact.
func renderSegments(segments []lineSegment, positionSet map[int]bool, background lipgloss.Color) string {
	var result strings.Builder
	offset := 0
	for _, segment := range segments {
		runes := []rune(segment.text)
		if len(runes) == 0 {
			continue
		}
		highlightStyle := segment.style.Background(background)

		runStart := 0
		isHighlighted := positionSet[offset]
		for index := 1; index <= len(runes); index++ {
			currentHighlighted := index < len(runes) && positionSet[offset+index]
			if currentHighlighted != isHighlighted || index == len(runes) {
				chunk := string(runes[runStart:index])
				if isHighlighted {
					result.WriteString(highlightStyle.Render(chunk))
				} else {
					result.WriteString(segment.style.Render(chunk))
				}
				runStart = index
				isHighlighted = currentHighlighted
			}
		}
		offset += len(runes)
	}
	return result.String()
}
