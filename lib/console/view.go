// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/warden-project/warden/lib/eventlog"
	"github.com/warden-project/warden/lib/ipc"
)

// Fixed column widths for the process table. The package column fills
// the remaining space.
const (
	columnWidthID       = 5  // " %3d "
	columnWidthIdentity = 17 // "fixed:0x3be6efaa" plus separator
	columnWidthState    = 19 // "credentials-failed" plus separator
	columnWidthVerified = 4
	columnWidthFaults   = 7
	columnWidthAge      = 8
)

// Fixed column widths for the event stream. The detail column fills
// the remaining space.
const (
	eventColumnPackage = 20
)

// tabDefs is the fixed list of tab definitions for the header line.
var tabDefs = []struct {
	label string
	tab   Tab
}{
	{"1:Processes", TabProcesses},
	{"2:Events", TabEvents},
}

// View implements tea.Model. Renders the full console frame.
func (model Model) View() string {
	if !model.ready {
		return "Connecting..."
	}

	var sections []string

	// Top chrome line: either the tab bar or the filter bar. The
	// filter bar replaces the tab bar so the layout doesn't shift.
	filterView := ""
	if model.activeTab == TabProcesses {
		filterView = model.filter.View(model.theme, model.width)
	}
	if filterView != "" {
		sections = append(sections, filterView)
	} else {
		sections = append(sections, model.renderHeader())
	}

	sections = append(sections, model.renderColumnHeader())

	var rows []string
	if model.activeTab == TabProcesses {
		rows = model.renderProcessRows()
	} else {
		rows = model.renderEventRows()
	}
	for len(rows) < model.visibleRows() {
		rows = append(rows, "")
	}
	sections = append(sections, rows...)

	sections = append(sections, model.renderStatusBar())

	return strings.Join(sections, "\n")
}

// renderHeader renders the combined tab bar + separator as a single
// line in the btop style: tab labels embedded in a horizontal rule
// with daemon stats on the right.
//
// Example: ─── 1:Processes ─── 2:Events ─────── 4 processes  2 running ─
func (model Model) renderHeader() string {
	separatorStyle := lipgloss.NewStyle().
		Foreground(model.theme.BorderColor)
	activeStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(model.theme.HeaderForeground)
	inactiveStyle := lipgloss.NewStyle().
		Foreground(model.theme.FaintText)
	statsStyle := lipgloss.NewStyle().
		Foreground(model.theme.FaintText)

	sep := separatorStyle.Render("─")

	leftParts := sep + sep + sep
	cursor := 3

	for index, tabDef := range tabDefs {
		leftParts += " "
		cursor++

		if model.activeTab == tabDef.tab {
			leftParts += activeStyle.Render(tabDef.label)
		} else {
			leftParts += inactiveStyle.Render(tabDef.label)
		}
		cursor += lipgloss.Width(tabDef.label)

		leftParts += " "
		cursor++

		sepCount := 3
		if index == len(tabDefs)-1 {
			sepCount = 1
		}
		for i := 0; i < sepCount; i++ {
			leftParts += sep
			cursor++
		}
	}

	running := model.snapshot.Status.States["running"]
	statsText := fmt.Sprintf("%d processes  %d running  seq %d",
		model.snapshot.Status.Processes, running, model.snapshot.Status.JournalSeq)
	statsRendered := statsStyle.Render(statsText)
	statsWidth := lipgloss.Width(statsText)

	rightPortion := " " + statsRendered + " " + sep
	rightWidth := 1 + statsWidth + 1 + 1

	fillCount := model.width - cursor - rightWidth
	if fillCount < 1 {
		fillCount = 1
	}
	fill := ""
	for i := 0; i < fillCount; i++ {
		fill += sep
	}

	return leftParts + fill + rightPortion
}

// renderColumnHeader renders the bold column header line for the
// active tab.
func (model Model) renderColumnHeader() string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(model.theme.HeaderForeground)

	if model.activeTab == TabProcesses {
		header := fmt.Sprintf(" %3s %s%-*s%-*s%s%6s %s",
			"ID",
			padRight("PACKAGE", model.packageColumnWidth()),
			columnWidthIdentity, "IDENTITY",
			columnWidthState, "STATE",
			"VER ",
			"FAULTS",
			"AGE")
		return style.Render(header)
	}

	header := fmt.Sprintf("%6s  %-8s  %-7s %s%s",
		"SEQ", "TIME", "KIND",
		padRight("PACKAGE", eventColumnPackage),
		"DETAIL")
	return style.Render(header)
}

// packageColumnWidth returns the width left for the package name after
// the fixed columns.
func (model Model) packageColumnWidth() int {
	width := model.width - columnWidthID - columnWidthIdentity -
		columnWidthState - columnWidthVerified - columnWidthFaults - columnWidthAge
	if width < 10 {
		return 10
	}
	return width
}

// renderProcessRows renders the visible slice of the process table.
func (model Model) renderProcessRows() []string {
	if len(model.processes) == 0 {
		message := "  no processes registered"
		if model.filter.Input != "" {
			message = "  no matches"
		}
		return []string{lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(message)}
	}

	now := time.Now()
	visible := model.visibleRows()

	var rows []string
	for index := model.scrollOffset; index < model.scrollOffset+visible && index < len(model.processes); index++ {
		process := model.processes[index]
		rows = append(rows, model.renderProcessRow(process, index == model.cursor, now))
	}
	return rows
}

// renderProcessRow renders one process as a table row. The selected
// row uses a uniform highlight; normal rows color each column.
func (model Model) renderProcessRow(process ipc.ProcessInfo, selected bool, now time.Time) string {
	packageWidth := model.packageColumnWidth()
	name := ansi.Truncate(process.Package, packageWidth-1, "…")

	verifiedMark := " -  "
	if process.Verified {
		verifiedMark = " ✓  "
	}

	idText := fmt.Sprintf(" %3d ", process.ID)
	identityText := fmt.Sprintf("%-*s", columnWidthIdentity, process.ShortId)
	stateText := fmt.Sprintf("%-*s", columnWidthState, process.State)
	faultsText := fmt.Sprintf("%6d ", process.RestartCount)
	ageText := fmt.Sprintf("%-*s", columnWidthAge, formatAge(process.RegisteredAt, now))

	if selected {
		row := idText + padRight(name, packageWidth) + identityText +
			stateText + verifiedMark + faultsText + ageText
		return lipgloss.NewStyle().
			Background(model.theme.SelectedBackground).
			Foreground(model.theme.SelectedForeground).
			Width(model.width).
			MaxWidth(model.width).
			Render(row)
	}

	faintStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	nameStyle := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	stateStyle := lipgloss.NewStyle().Foreground(model.theme.StateColor(process.State))

	verifiedStyle := lipgloss.NewStyle().Foreground(model.theme.UnverifiedMark)
	if process.Verified {
		verifiedStyle = lipgloss.NewStyle().Foreground(model.theme.VerifiedMark)
	}

	faultsStyle := faintStyle
	if process.RestartCount > 0 {
		faultsStyle = lipgloss.NewStyle().Foreground(model.theme.StateYielded)
	}

	var nameRendered string
	if positions := model.filterHighlights[process.ID]; len(positions) > 0 {
		highlightStyle := lipgloss.NewStyle().
			Foreground(model.theme.NormalText).
			Background(model.theme.SearchHighlightBackground)
		nameRendered = highlightText(name, positions, nameStyle, highlightStyle)
		nameRendered += strings.Repeat(" ", gapWidth(name, packageWidth))
	} else {
		nameRendered = nameStyle.Render(name) + strings.Repeat(" ", gapWidth(name, packageWidth))
	}

	return faintStyle.Render(idText) +
		nameRendered +
		faintStyle.Render(identityText) +
		stateStyle.Render(stateText) +
		verifiedStyle.Render(verifiedMark) +
		faultsStyle.Render(faultsText) +
		faintStyle.Render(ageText)
}

// renderEventRows renders the visible slice of the journal stream,
// oldest first.
func (model Model) renderEventRows() []string {
	events := model.visibleEvents()
	if len(events) == 0 {
		return []string{lipgloss.NewStyle().
			Foreground(model.theme.FaintText).
			Render("  no events (journal disabled or empty)")}
	}

	detailWidth := model.width - 6 - 2 - 8 - 2 - 8 - eventColumnPackage
	if detailWidth < 10 {
		detailWidth = 10
	}

	faintStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	textStyle := lipgloss.NewStyle().Foreground(model.theme.NormalText)

	var rows []string
	for _, event := range events {
		rows = append(rows, model.renderEventRow(event, detailWidth, faintStyle, textStyle))
	}
	return rows
}

// renderEventRow renders one journal record.
func (model Model) renderEventRow(event eventlog.Event, detailWidth int, faintStyle, textStyle lipgloss.Style) string {
	timeText := time.UnixMilli(event.Time).Local().Format("15:04:05")

	kindStyle := lipgloss.NewStyle().
		Foreground(model.theme.EventKindColor(string(event.Kind)))

	name := ansi.Truncate(event.Package, eventColumnPackage-1, "…")
	detail := ansi.Truncate(event.Detail, detailWidth, "…")

	return faintStyle.Render(fmt.Sprintf("%6d  %s  ", event.Seq, timeText)) +
		kindStyle.Render(fmt.Sprintf("%-7s ", event.Kind)) +
		textStyle.Render(name) + strings.Repeat(" ", gapWidth(name, eventColumnPackage)) +
		textStyle.Render(detail)
}

// renderStatusBar renders the bottom line: key hints, list position,
// and connection state.
func (model Model) renderStatusBar() string {
	helpStyle := lipgloss.NewStyle().Foreground(model.theme.HelpText)

	focusIndicator := "PROC"
	switch {
	case model.focusRegion == FocusFilter:
		focusIndicator = "FILTER"
	case model.activeTab == TabEvents:
		focusIndicator = "EVENTS"
	}

	help := fmt.Sprintf(" [%s] q quit  ↑↓ navigate  1/2 tabs  / filter  C-r refresh", focusIndicator)
	if _, ok := model.source.(Lifecycle); ok && model.activeTab == TabProcesses {
		help += "  s stop  r restart"
	}

	if model.activeTab == TabProcesses && len(model.processes) > 0 {
		help += fmt.Sprintf("  %d/%d", model.cursor+1, len(model.processes))
	}

	line := helpStyle.Render(help)

	switch {
	case model.connError != "":
		errorStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(model.theme.ErrorText)
		line += "  " + errorStyle.Render(model.connError)

	case model.notice != "":
		noticeStyle := lipgloss.NewStyle().
			Foreground(model.theme.StateYielded)
		line += "  " + noticeStyle.Render(model.notice)

	case !model.lastRefresh.IsZero():
		age := time.Since(model.lastRefresh).Round(time.Second)
		line += "  " + helpStyle.Render(fmt.Sprintf("refreshed %s ago", age))
	}

	return line
}

// highlightText renders text with character-level highlighting at the
// given rune positions. Consecutive runs of same-style characters are
// batched into a single Render call to keep ANSI output compact.
func highlightText(text string, positions []int, baseStyle, highlightStyle lipgloss.Style) string {
	if len(positions) == 0 {
		return baseStyle.Render(text)
	}

	positionSet := make(map[int]bool, len(positions))
	for _, position := range positions {
		positionSet[position] = true
	}

	runes := []rune(text)
	var result strings.Builder
	runStart := 0
	isHighlighted := positionSet[0]

	for index := 1; index <= len(runes); index++ {
		currentHighlighted := index < len(runes) && positionSet[index]
		if currentHighlighted != isHighlighted || index == len(runes) {
			chunk := string(runes[runStart:index])
			if isHighlighted {
				result.WriteString(highlightStyle.Render(chunk))
			} else {
				result.WriteString(baseStyle.Render(chunk))
			}
			runStart = index
			isHighlighted = currentHighlighted
		}
	}

	return result.String()
}

// padRight pads text with spaces to the given display width. Uses
// ANSI-aware width measurement so truncated strings with an ellipsis
// pad correctly.
func padRight(text string, width int) string {
	return text + strings.Repeat(" ", gapWidth(text, width))
}

// gapWidth returns how many pad spaces text needs to fill width.
func gapWidth(text string, width int) int {
	gap := width - ansi.StringWidth(text)
	if gap < 0 {
		return 0
	}
	return gap
}

// formatAge renders how long ago a process registered, using the two
// most significant units.
func formatAge(registeredAt int64, now time.Time) string {
	if registeredAt <= 0 {
		return "-"
	}
	age := now.Sub(time.UnixMilli(registeredAt))
	if age < 0 {
		age = 0
	}

	switch {
	case age >= 24*time.Hour:
		days := int(age.Hours()) / 24
		hours := int(age.Hours()) % 24
		return fmt.Sprintf("%dd%dh", days, hours)
	case age >= time.Hour:
		hours := int(age.Hours())
		minutes := int(age.Minutes()) % 60
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case age >= time.Minute:
		minutes := int(age.Minutes())
		seconds := int(age.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	}
}
