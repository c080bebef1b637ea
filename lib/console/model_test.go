// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/warden-project/warden/lib/eventlog"
	"github.com/warden-project/warden/lib/ipc"
)

// fakeSource serves a canned snapshot and records lifecycle calls.
// It implements both Source and Lifecycle.
type fakeSource struct {
	snapshot Snapshot
	err      error
	started  []uint64
	stopped  []uint64
}

func (source *fakeSource) Snapshot(ctx context.Context) (Snapshot, error) {
	return source.snapshot, source.err
}

func (source *fakeSource) StartProcess(ctx context.Context, process uint64) error {
	source.started = append(source.started, process)
	return nil
}

func (source *fakeSource) StopProcess(ctx context.Context, process uint64) error {
	source.stopped = append(source.stopped, process)
	return nil
}

// readOnlySource implements Source without Lifecycle.
type readOnlySource struct {
	snapshot Snapshot
}

func (source *readOnlySource) Snapshot(ctx context.Context) (Snapshot, error) {
	return source.snapshot, nil
}

// testSnapshot builds a snapshot with four processes in mixed states
// and a short journal tail.
func testSnapshot() Snapshot {
	now := time.Now().UnixMilli()
	return Snapshot{
		Processes: []ipc.ProcessInfo{
			{ID: 1, Package: "blink", ShortId: "fixed:0x3be6efaa", Verified: true, State: "running", RegisteredAt: now},
			{ID: 2, Package: "sensor-hub", ShortId: "locally-unique", State: "yielded", RegisteredAt: now},
			{ID: 3, Package: "logger", ShortId: "fixed:0x11c194a2", Verified: true, State: "stopped", RegisteredAt: now},
			{ID: 4, Package: "radio-bridge", ShortId: "locally-unique", State: "faulted", RestartCount: 2, RegisteredAt: now},
		},
		Status: ipc.StatusInfo{
			Processes:  4,
			States:     map[string]int{"running": 1, "yielded": 1, "stopped": 1, "faulted": 1},
			JournalSeq: 42,
		},
		Events: []eventlog.Event{
			{Seq: 40, Time: now, Kind: eventlog.KindAdmit, Package: "blink", Process: 1, Detail: "verified"},
			{Seq: 41, Time: now, Kind: eventlog.KindDeny, Package: "sensor-hub", Process: 2, Detail: "driver 0x40001 command"},
			{Seq: 42, Time: now, Kind: eventlog.KindFault, Package: "radio-bridge", Process: 4, Detail: "restart 2/3"},
		},
	}
}

// loadedModel returns a model with terminal dimensions and the test
// snapshot applied.
func loadedModel(source Source) Model {
	model := NewModel(source)

	updated, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 24})
	model = updated.(Model)

	updated, _ = model.Update(snapshotMsg{snapshot: testSnapshot()})
	return updated.(Model)
}

func TestNewModelDefaults(t *testing.T) {
	model := NewModel(&readOnlySource{})

	if model.activeTab != TabProcesses {
		t.Errorf("initial tab = %d, want TabProcesses", model.activeTab)
	}
	if model.focusRegion != FocusList {
		t.Errorf("initial focus = %d, want FocusList", model.focusRegion)
	}
	if !model.followTail {
		t.Error("event stream should follow the tail initially")
	}
	if model.pollInterval != defaultPollInterval {
		t.Errorf("poll interval = %v, want %v", model.pollInterval, defaultPollInterval)
	}
}

func TestSnapshotPopulatesProcesses(t *testing.T) {
	model := loadedModel(&fakeSource{snapshot: testSnapshot()})

	if len(model.processes) != 4 {
		t.Fatalf("expected 4 processes, got %d", len(model.processes))
	}
	if model.connError != "" {
		t.Errorf("connError should be empty, got %q", model.connError)
	}
	if model.selectedID != 1 {
		t.Errorf("selection should land on the first handle, got %d", model.selectedID)
	}
}

func TestSnapshotErrorKeepsPreviousState(t *testing.T) {
	model := loadedModel(&fakeSource{snapshot: testSnapshot()})

	updated, _ := model.Update(snapshotMsg{err: errors.New("dial unix: connection refused")})
	model = updated.(Model)

	if model.connError == "" {
		t.Error("connError should carry the poll failure")
	}
	if len(model.processes) != 4 {
		t.Errorf("previous process table should survive a failed poll, got %d rows", len(model.processes))
	}
}

func TestNavigationBounds(t *testing.T) {
	model := loadedModel(&fakeSource{snapshot: testSnapshot()})

	press := func(r rune) {
		updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		model = updated.(Model)
	}

	press('j')
	press('j')
	if model.cursor != 2 {
		t.Errorf("cursor after jj = %d, want 2", model.cursor)
	}

	press('G')
	if model.cursor != 3 {
		t.Errorf("cursor after G = %d, want 3 (last row)", model.cursor)
	}

	press('j')
	if model.cursor != 3 {
		t.Errorf("cursor should stop at the last row, got %d", model.cursor)
	}

	press('g')
	if model.cursor != 0 {
		t.Errorf("cursor after g = %d, want 0", model.cursor)
	}

	press('k')
	if model.cursor != 0 {
		t.Errorf("cursor should stop at the first row, got %d", model.cursor)
	}
}

func TestSelectionSurvivesReorder(t *testing.T) {
	model := loadedModel(&fakeSource{snapshot: testSnapshot()})

	// Select handle 3 (row index 2).
	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	model = updated.(Model)
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	model = updated.(Model)
	if model.selectedID != 3 {
		t.Fatalf("selectedID = %d, want 3", model.selectedID)
	}

	// Refresh with the table reversed; the cursor must follow the
	// handle to its new row.
	reordered := testSnapshot()
	for i, j := 0, len(reordered.Processes)-1; i < j; i, j = i+1, j-1 {
		reordered.Processes[i], reordered.Processes[j] = reordered.Processes[j], reordered.Processes[i]
	}
	updated, _ = model.Update(snapshotMsg{snapshot: reordered})
	model = updated.(Model)

	if model.selectedID != 3 {
		t.Errorf("selectedID after reorder = %d, want 3", model.selectedID)
	}
	if model.cursor != 1 {
		t.Errorf("cursor after reorder = %d, want 1 (handle 3's new row)", model.cursor)
	}
}

func TestSelectionGoneClampsCursor(t *testing.T) {
	model := loadedModel(&fakeSource{snapshot: testSnapshot()})

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	model = updated.(Model)
	if model.selectedID != 4 {
		t.Fatalf("selectedID = %d, want 4", model.selectedID)
	}

	// Handle 4 unloaded between polls.
	shrunk := testSnapshot()
	shrunk.Processes = shrunk.Processes[:2]
	updated, _ = model.Update(snapshotMsg{snapshot: shrunk})
	model = updated.(Model)

	if model.cursor != 1 {
		t.Errorf("cursor should clamp to the last row, got %d", model.cursor)
	}
	if model.selectedID != 2 {
		t.Errorf("selection should move to the clamped row's handle, got %d", model.selectedID)
	}
}

func TestFilterNarrowsAndRestores(t *testing.T) {
	model := loadedModel(&fakeSource{snapshot: testSnapshot()})

	// Activate the filter and type a query.
	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	model = updated.(Model)
	if model.focusRegion != FocusFilter {
		t.Fatal("slash should enter filter mode")
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("blink")})
	model = updated.(Model)

	if len(model.processes) != 1 {
		t.Fatalf("filter 'blink' should match 1 process, got %d", len(model.processes))
	}
	if model.processes[0].Package != "blink" {
		t.Errorf("filtered row = %q, want blink", model.processes[0].Package)
	}
	if len(model.filterHighlights[1]) == 0 {
		t.Error("expected highlight positions for the matched package name")
	}

	// Enter confirms and returns focus to the list.
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)
	if model.focusRegion != FocusList {
		t.Error("enter should return focus to the list")
	}
	if model.filter.Input != "blink" {
		t.Errorf("confirmed filter should keep its text, got %q", model.filter.Input)
	}

	// Esc from the list clears the filter and restores the table.
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	model = updated.(Model)
	if model.filter.Input != "" {
		t.Errorf("esc should clear the filter, got %q", model.filter.Input)
	}
	if len(model.processes) != 4 {
		t.Errorf("cleared filter should restore all 4 rows, got %d", len(model.processes))
	}
}

func TestFilterEscClearsThenExits(t *testing.T) {
	model := loadedModel(&fakeSource{snapshot: testSnapshot()})

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	model = updated.(Model)
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("log")})
	model = updated.(Model)

	// First esc clears the text but stays in filter mode.
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	model = updated.(Model)
	if model.filter.Input != "" {
		t.Errorf("first esc should clear text, got %q", model.filter.Input)
	}
	if model.focusRegion != FocusFilter {
		t.Error("first esc should stay in filter mode")
	}

	// Second esc exits filter mode.
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	model = updated.(Model)
	if model.focusRegion != FocusList {
		t.Error("second esc should return to the list")
	}
}

func TestQKeyIsTextInFilterMode(t *testing.T) {
	model := loadedModel(&fakeSource{snapshot: testSnapshot()})

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	model = updated.(Model)

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	model = updated.(Model)

	if cmd != nil {
		t.Error("q in filter mode should not quit")
	}
	if model.filter.Input != "q" {
		t.Errorf("q should append to the filter, got %q", model.filter.Input)
	}
}

func TestStopKeyCallsLifecycle(t *testing.T) {
	source := &fakeSource{snapshot: testSnapshot()}
	model := loadedModel(source)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if cmd == nil {
		t.Fatal("s should produce a lifecycle command")
	}

	message := cmd()
	result, ok := message.(actionResultMsg)
	if !ok {
		t.Fatalf("expected actionResultMsg, got %T", message)
	}
	if result.verb != "stop" || result.process != 1 {
		t.Errorf("result = %s/%d, want stop/1", result.verb, result.process)
	}
	if len(source.stopped) != 1 || source.stopped[0] != 1 {
		t.Errorf("StopProcess calls = %v, want [1]", source.stopped)
	}
}

func TestRestartKeyCallsLifecycle(t *testing.T) {
	source := &fakeSource{snapshot: testSnapshot()}
	model := loadedModel(source)

	// Move to the stopped process (handle 3) and restart it.
	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	model = updated.(Model)
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	model = updated.(Model)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if cmd == nil {
		t.Fatal("r should produce a lifecycle command")
	}
	cmd()

	if len(source.started) != 1 || source.started[0] != 3 {
		t.Errorf("StartProcess calls = %v, want [3]", source.started)
	}
}

func TestLifecycleKeysInertOnReadOnlySource(t *testing.T) {
	model := loadedModel(&readOnlySource{snapshot: testSnapshot()})

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if cmd != nil {
		t.Error("s should do nothing without a Lifecycle source")
	}
}

func TestActionResultSetsNotice(t *testing.T) {
	model := loadedModel(&fakeSource{snapshot: testSnapshot()})

	updated, cmd := model.Update(actionResultMsg{verb: "stop", process: 1})
	model = updated.(Model)

	if !strings.Contains(model.notice, "stop") {
		t.Errorf("notice = %q, should mention the verb", model.notice)
	}
	if cmd == nil {
		t.Error("action result should trigger an immediate refresh")
	}

	updated, _ = model.Update(noticeFadeMsg{})
	model = updated.(Model)
	if model.notice != "" {
		t.Errorf("notice should fade, got %q", model.notice)
	}
}

func TestTabSwitch(t *testing.T) {
	model := loadedModel(&fakeSource{snapshot: testSnapshot()})

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	model = updated.(Model)
	if model.activeTab != TabEvents {
		t.Error("2 should switch to the events tab")
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'1'}})
	model = updated.(Model)
	if model.activeTab != TabProcesses {
		t.Error("1 should switch back to the processes tab")
	}
}

func TestEventStreamFollowsTail(t *testing.T) {
	snapshot := testSnapshot()
	// Enough events to overflow a short terminal.
	for seq := uint64(43); seq < 80; seq++ {
		snapshot.Events = append(snapshot.Events, eventlog.Event{
			Seq: seq, Kind: eventlog.KindState, Package: "blink", Detail: "running -> yielded",
		})
	}

	model := NewModel(&fakeSource{snapshot: snapshot})
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 12})
	model = updated.(Model)
	updated, _ = model.Update(snapshotMsg{snapshot: snapshot})
	model = updated.(Model)

	if model.eventScroll != model.maxEventScroll() {
		t.Errorf("following tail: scroll = %d, want %d", model.eventScroll, model.maxEventScroll())
	}

	// Scroll up; tail following stops.
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	model = updated.(Model)
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	model = updated.(Model)
	if model.followTail {
		t.Error("scrolling up should stop tail following")
	}
	heldScroll := model.eventScroll

	// New events arrive; the view must not jump.
	grown := snapshot
	grown.Events = append(grown.Events, eventlog.Event{Seq: 80, Kind: eventlog.KindStop, Package: "blink"})
	updated, _ = model.Update(snapshotMsg{snapshot: grown})
	model = updated.(Model)
	if model.eventScroll != heldScroll {
		t.Errorf("scroll jumped from %d to %d on refresh", heldScroll, model.eventScroll)
	}

	// G resumes following.
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	model = updated.(Model)
	if !model.followTail {
		t.Error("G should resume tail following")
	}
	if model.eventScroll != model.maxEventScroll() {
		t.Errorf("G should pin to the bottom, scroll = %d", model.eventScroll)
	}
}

func TestQuitKey(t *testing.T) {
	model := loadedModel(&fakeSource{snapshot: testSnapshot()})

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should produce a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestViewShowsProcessTable(t *testing.T) {
	model := loadedModel(&fakeSource{snapshot: testSnapshot()})

	view := model.View()
	for _, want := range []string{"1:Processes", "2:Events", "blink", "sensor-hub", "running", "faulted"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q", want)
		}
	}
	if !strings.Contains(view, "PACKAGE") {
		t.Error("view should contain the column header")
	}
}

func TestViewShowsEventStream(t *testing.T) {
	model := loadedModel(&fakeSource{snapshot: testSnapshot()})

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	model = updated.(Model)

	view := model.View()
	for _, want := range []string{"SEQ", "KIND", "deny", "driver 0x40001 command"} {
		if !strings.Contains(view, want) {
			t.Errorf("events view should contain %q", want)
		}
	}
}

func TestViewBeforeFirstResize(t *testing.T) {
	model := NewModel(&readOnlySource{})
	if view := model.View(); !strings.Contains(view, "Connecting") {
		t.Errorf("pre-resize view = %q, want the connecting placeholder", view)
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		at   int64
		want string
	}{
		{"unregistered", 0, "-"},
		{"seconds", now.Add(-30 * time.Second).UnixMilli(), "30s"},
		{"minutes", now.Add(-5*time.Minute - 10*time.Second).UnixMilli(), "5m10s"},
		{"hours", now.Add(-3*time.Hour - 25*time.Minute).UnixMilli(), "3h25m"},
		{"days", now.Add(-50 * time.Hour).UnixMilli(), "2d2h"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := formatAge(test.at, now); got != test.want {
				t.Errorf("formatAge = %q, want %q", got, test.want)
			}
		})
	}
}
