// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/warden-project/warden/lib/eventlog"
	"github.com/warden-project/warden/lib/ipc"
)

// Tab identifies which data view is active.
type Tab int

const (
	// TabProcesses shows the registered process table.
	TabProcesses Tab = iota
	// TabEvents shows the journal event stream.
	TabEvents
)

// FocusRegion identifies where keyboard input routes.
type FocusRegion int

const (
	// FocusList means navigation keys move the process cursor or
	// scroll the event stream.
	FocusList FocusRegion = iota
	// FocusFilter means keystrokes go to the filter input.
	FocusFilter
)

const (
	// defaultPollInterval is how often the console refreshes from the
	// daemon when the caller does not override it.
	defaultPollInterval = 2 * time.Second

	// snapshotTimeout bounds one polling round. A daemon that stops
	// answering surfaces as a status bar error instead of a hang.
	snapshotTimeout = 5 * time.Second

	// noticeFadeDelay is how long action feedback stays visible in
	// the status bar.
	noticeFadeDelay = 3 * time.Second
)

// snapshotMsg delivers the result of one polling round.
type snapshotMsg struct {
	snapshot Snapshot
	err      error
}

// pollTickMsg fires when the poll interval elapses.
type pollTickMsg struct{}

// actionResultMsg is sent when an asynchronous lifecycle call
// completes. On success the next snapshot shows the new state; on
// error the message is displayed in the status bar.
type actionResultMsg struct {
	verb    string
	process uint64
	err     error
}

// noticeFadeMsg clears action feedback from the status bar.
type noticeFadeMsg struct{}

// Model is the top-level bubbletea model for the warden console.
type Model struct {
	source       Source
	theme        Theme
	keys         KeyMap
	pollInterval time.Duration

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	// Active tab and filter.
	activeTab   Tab
	focusRegion FocusRegion
	filter      FilterModel

	// Daemon state from the last successful snapshot. processes is
	// the filtered, score-ordered view of snapshot.Processes.
	snapshot         Snapshot
	processes        []ipc.ProcessInfo
	filterHighlights map[uint64][]int

	// Process list state. selectedID tracks the selection by handle
	// so it survives refreshes that reorder the table.
	cursor       int
	scrollOffset int
	selectedID   uint64

	// Event stream scroll. followTail keeps the view pinned to the
	// newest events until the operator scrolls up.
	eventScroll int
	followTail  bool

	// Status bar state.
	connError   string
	notice      string
	lastRefresh time.Time
}

// NewModel creates a Model connected to the given daemon source.
func NewModel(source Source) Model {
	return Model{
		source:       source,
		theme:        DefaultTheme,
		keys:         DefaultKeyMap,
		pollInterval: defaultPollInterval,
		followTail:   true,
	}
}

// SetTheme replaces the color palette. Call before running the
// bubbletea program.
func (model *Model) SetTheme(theme Theme) {
	model.theme = theme
}

// SetPollInterval overrides how often the console polls the daemon.
// Call before running the bubbletea program.
func (model *Model) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		model.pollInterval = interval
	}
}

// Init implements tea.Model. Fetches the first snapshot immediately
// and starts the poll timer.
func (model Model) Init() tea.Cmd {
	return tea.Batch(
		fetchSnapshot(model.source),
		schedulePoll(model.pollInterval),
	)
}

// fetchSnapshot returns a tea.Cmd that polls the source once and
// delivers the result as a snapshotMsg.
func fetchSnapshot(source Source) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		snapshot, err := source.Snapshot(ctx)
		return snapshotMsg{snapshot: snapshot, err: err}
	}
}

// schedulePoll returns a tea.Cmd that fires a pollTickMsg after the
// poll interval.
func schedulePoll(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

// Update implements tea.Model. Routes keyboard events based on the
// current focus region and folds in polling results.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		if model.focusRegion == FocusFilter {
			return model.handleFilterKeys(message)
		}

		switch {
		case key.Matches(message, model.keys.Quit):
			return model, tea.Quit

		case key.Matches(message, model.keys.TabProcesses):
			model.activeTab = TabProcesses

		case key.Matches(message, model.keys.TabEvents):
			model.activeTab = TabEvents

		case key.Matches(message, model.keys.FilterActivate):
			if model.activeTab == TabProcesses {
				model.focusRegion = FocusFilter
				model.filter.Active = true
				model.cursor = 0
				model.scrollOffset = 0
			}

		case key.Matches(message, model.keys.FilterClear):
			if model.filter.Input != "" {
				model.filter.Clear()
				model.applyFilter()
			}

		case key.Matches(message, model.keys.Refresh):
			return model, fetchSnapshot(model.source)

		case key.Matches(message, model.keys.StopProcess):
			if cmd := model.lifecycleCommand("stop"); cmd != nil {
				return model, cmd
			}

		case key.Matches(message, model.keys.StartProcess):
			if cmd := model.lifecycleCommand("restart"); cmd != nil {
				return model, cmd
			}

		default:
			if model.activeTab == TabProcesses {
				model.handleListKeys(message)
			} else {
				model.handleEventKeys(message)
			}
		}

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.clampEventScroll()

	case snapshotMsg:
		if message.err != nil {
			model.connError = message.err.Error()
			return model, nil
		}
		model.connError = ""
		model.snapshot = message.snapshot
		model.lastRefresh = time.Now()
		model.applyFilter()
		if model.followTail {
			model.scrollEventsToBottom()
		} else {
			model.clampEventScroll()
		}

	case pollTickMsg:
		return model, tea.Batch(
			fetchSnapshot(model.source),
			schedulePoll(model.pollInterval),
		)

	case actionResultMsg:
		if message.err != nil {
			model.notice = fmt.Sprintf("%s failed: %v", message.verb, message.err)
		} else {
			model.notice = fmt.Sprintf("%s sent for handle %d", message.verb, message.process)
		}
		return model, tea.Batch(
			fetchSnapshot(model.source),
			tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg {
				return noticeFadeMsg{}
			}),
		)

	case noticeFadeMsg:
		model.notice = ""
	}

	return model, nil
}

// handleFilterKeys processes keystrokes when the filter input has
// focus. Regular characters go to the input, Esc clears or exits,
// Enter confirms and returns to the list.
func (model Model) handleFilterKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		// ctrl+c always quits; 'q' is a regular character here.
		if message.Type == tea.KeyCtrlC {
			return model, tea.Quit
		}
		model.filter.HandleRune('q')
		model.applyFilter()
		return model, nil

	case key.Matches(message, model.keys.FilterClear):
		// Esc: clear text first, then exit filter mode.
		if model.filter.Input != "" {
			model.filter.Clear()
			model.filter.Active = true
			model.applyFilter()
		} else {
			model.filter.Active = false
			model.focusRegion = FocusList
		}
		return model, nil

	case message.Type == tea.KeyEnter:
		model.filter.Active = false
		model.focusRegion = FocusList
		return model, nil

	case message.Type == tea.KeyBackspace:
		if model.filter.HandleBackspace() {
			model.applyFilter()
		}
		return model, nil

	case message.Type == tea.KeyRunes || message.Type == tea.KeySpace:
		for _, character := range message.Runes {
			model.filter.HandleRune(character)
		}
		model.applyFilter()
		return model, nil
	}

	return model, nil
}

// applyFilter rebuilds the displayed process list from the snapshot
// and the current filter text, then restores the selection.
func (model *Model) applyFilter() {
	results := model.filter.ApplyFuzzy(model.snapshot.Processes)

	model.processes = make([]ipc.ProcessInfo, len(results))
	model.filterHighlights = make(map[uint64][]int, len(results))
	for index, result := range results {
		model.processes[index] = result.Process
		if len(result.NamePositions) > 0 {
			model.filterHighlights[result.Process.ID] = result.NamePositions
		}
	}

	if model.filter.Input != "" && model.filter.Active {
		// While typing, snap to the top so the best matches are
		// visible; an offset from the unfiltered table would show an
		// arbitrary slice.
		model.cursor = 0
		model.scrollOffset = 0
		if len(model.processes) > 0 {
			model.selectedID = model.processes[0].ID
		}
	} else {
		model.restoreSelection()
	}
	model.ensureCursorVisible()
}

// restoreSelection finds the previously selected process handle in the
// rebuilt list and moves the cursor there. If the handle is gone,
// clamps the cursor to a valid position.
func (model *Model) restoreSelection() {
	if model.selectedID != 0 {
		for index, process := range model.processes {
			if process.ID == model.selectedID {
				model.cursor = index
				return
			}
		}
	}

	if model.cursor >= len(model.processes) {
		model.cursor = len(model.processes) - 1
	}
	if model.cursor < 0 {
		model.cursor = 0
	}
	if model.cursor < len(model.processes) {
		model.selectedID = model.processes[model.cursor].ID
	}
}

// handleListKeys processes navigation keys when the process list has
// focus.
func (model *Model) handleListKeys(message tea.KeyMsg) {
	switch {
	case key.Matches(message, model.keys.Up):
		if model.cursor > 0 {
			model.cursor--
		}

	case key.Matches(message, model.keys.Down):
		if model.cursor < len(model.processes)-1 {
			model.cursor++
		}

	case key.Matches(message, model.keys.PageUp):
		model.cursor -= model.visibleRows()
		if model.cursor < 0 {
			model.cursor = 0
		}

	case key.Matches(message, model.keys.PageDown):
		model.cursor += model.visibleRows()
		if model.cursor >= len(model.processes) {
			model.cursor = len(model.processes) - 1
		}
		if model.cursor < 0 {
			model.cursor = 0
		}

	case key.Matches(message, model.keys.Home):
		model.cursor = 0

	case key.Matches(message, model.keys.End):
		if len(model.processes) > 0 {
			model.cursor = len(model.processes) - 1
		}
	}

	if model.cursor < len(model.processes) {
		model.selectedID = model.processes[model.cursor].ID
	}
	model.ensureCursorVisible()
}

// handleEventKeys processes navigation keys on the events tab. The
// stream follows the tail until the operator scrolls up; End resumes
// following.
func (model *Model) handleEventKeys(message tea.KeyMsg) {
	switch {
	case key.Matches(message, model.keys.Up):
		model.eventScroll--
		model.followTail = false

	case key.Matches(message, model.keys.Down):
		model.eventScroll++

	case key.Matches(message, model.keys.PageUp):
		model.eventScroll -= model.visibleRows()
		model.followTail = false

	case key.Matches(message, model.keys.PageDown):
		model.eventScroll += model.visibleRows()

	case key.Matches(message, model.keys.Home):
		model.eventScroll = 0
		model.followTail = false

	case key.Matches(message, model.keys.End):
		model.scrollEventsToBottom()
		return
	}

	model.clampEventScroll()
	if model.eventScroll >= model.maxEventScroll() {
		model.followTail = true
	}
}

// lifecycleCommand builds the async command for a stop or restart of
// the selected process. Returns nil when the source is read-only, no
// process is selected, or the events tab is active.
func (model *Model) lifecycleCommand(verb string) tea.Cmd {
	lifecycle, ok := model.source.(Lifecycle)
	if !ok {
		return nil
	}
	if model.activeTab != TabProcesses {
		return nil
	}
	if model.cursor < 0 || model.cursor >= len(model.processes) {
		return nil
	}

	process := model.processes[model.cursor].ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()

		var err error
		if verb == "stop" {
			err = lifecycle.StopProcess(ctx, process)
		} else {
			err = lifecycle.StartProcess(ctx, process)
		}
		return actionResultMsg{verb: verb, process: process, err: err}
	}
}

// visibleRows returns how many content rows fit between the tab bar,
// the column header, and the status bar.
func (model Model) visibleRows() int {
	rows := model.height - 3
	if rows < 1 {
		return 1
	}
	return rows
}

// ensureCursorVisible adjusts the scroll offset so the cursor row is
// on screen.
func (model *Model) ensureCursorVisible() {
	visible := model.visibleRows()
	if model.cursor < model.scrollOffset {
		model.scrollOffset = model.cursor
	}
	if model.cursor >= model.scrollOffset+visible {
		model.scrollOffset = model.cursor - visible + 1
	}
	if model.scrollOffset < 0 {
		model.scrollOffset = 0
	}
}

// maxEventScroll returns the largest valid event scroll offset.
func (model Model) maxEventScroll() int {
	max := len(model.snapshot.Events) - model.visibleRows()
	if max < 0 {
		return 0
	}
	return max
}

// clampEventScroll keeps the event scroll offset within bounds.
func (model *Model) clampEventScroll() {
	if model.eventScroll < 0 {
		model.eventScroll = 0
	}
	if max := model.maxEventScroll(); model.eventScroll > max {
		model.eventScroll = max
	}
}

// scrollEventsToBottom pins the event view to the newest records and
// resumes tail following.
func (model *Model) scrollEventsToBottom() {
	model.eventScroll = model.maxEventScroll()
	model.followTail = true
}

// visibleEvents returns the slice of journal events currently on
// screen, oldest first.
func (model Model) visibleEvents() []eventlog.Event {
	events := model.snapshot.Events
	if len(events) == 0 {
		return nil
	}
	start := model.eventScroll
	if start < 0 {
		start = 0
	}
	if start >= len(events) {
		start = len(events) - 1
	}
	end := start + model.visibleRows()
	if end > len(events) {
		end = len(events)
	}
	return events[start:end]
}
