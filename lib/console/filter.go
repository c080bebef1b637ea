// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/junegunn/fzf/src/util"

	"github.com/warden-project/warden/lib/ipc"
)

// FilterModel implements fzf-style fuzzy matching across the process
// table. The filter composes with the tab bar: the processes tab shows
// the filtered table, and the filter narrows it client-side without
// another round trip to the daemon.
type FilterModel struct {
	// Input is the current filter query text.
	Input string

	// Active is true when the filter input has keyboard focus
	// (the user pressed / to start typing).
	Active bool

	// slab is scratch memory for the fuzzy matcher, allocated on
	// first use and reused across keystrokes.
	slab *util.Slab
}

// FilterResult pairs a process with its match score and the matched
// rune positions in the package name (for highlighting).
type FilterResult struct {
	Process       ipc.ProcessInfo
	Score         int
	NamePositions []int
}

// ApplyFuzzy matches the current query against each process and
// returns the matches sorted by score, best first. An empty query
// returns every process in its original order with zero scores.
//
// The query matches against the package name, the identity text, and
// the state name; the best field score wins. Only package name matches
// contribute highlight positions, since that is the column operators
// scan.
func (filter *FilterModel) ApplyFuzzy(processes []ipc.ProcessInfo) []FilterResult {
	if filter.Input == "" {
		results := make([]FilterResult, len(processes))
		for index, process := range processes {
			results[index] = FilterResult{Process: process}
		}
		return results
	}

	if filter.slab == nil {
		filter.slab = NewSlab()
	}
	pattern := []rune(filter.Input)

	var results []FilterResult
	for _, process := range processes {
		nameMatch := FuzzyMatch(process.Package, pattern, filter.slab)
		identityMatch := FuzzyMatch(process.ShortId, pattern, filter.slab)
		stateMatch := FuzzyMatch(process.State, pattern, filter.slab)

		score := nameMatch.Score
		if identityMatch.Score > score {
			score = identityMatch.Score
		}
		if stateMatch.Score > score {
			score = stateMatch.Score
		}
		if score <= 0 {
			continue
		}

		results = append(results, FilterResult{
			Process:       process,
			Score:         score,
			NamePositions: nameMatch.Positions,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// HandleRune processes a character typed while the filter is active.
// Returns true if the input changed.
func (filter *FilterModel) HandleRune(character rune) bool {
	filter.Input += string(character)
	return true
}

// HandleBackspace removes the last character from the filter input.
// Returns true if the input changed.
func (filter *FilterModel) HandleBackspace() bool {
	if len(filter.Input) == 0 {
		return false
	}
	runes := []rune(filter.Input)
	filter.Input = string(runes[:len(runes)-1])
	return true
}

// Clear resets the filter input and deactivates it.
func (filter *FilterModel) Clear() {
	filter.Input = ""
	filter.Active = false
}

// View renders the filter bar. When active, shows the input with a
// cursor. When inactive with text, shows the filter text as a subtle
// indicator. When inactive with no text, returns empty string.
func (filter *FilterModel) View(theme Theme, width int) string {
	if !filter.Active && filter.Input == "" {
		return ""
	}

	style := lipgloss.NewStyle().
		Foreground(theme.NormalText).
		Width(width)

	if filter.Active {
		cursor := lipgloss.NewStyle().
			Foreground(theme.HeaderForeground).
			Bold(true).
			Render("▎")
		return style.Render(" / " + filter.Input + cursor)
	}

	dimStyle := lipgloss.NewStyle().
		Foreground(theme.FaintText).
		Width(width)
	return dimStyle.Render(" filter: " + filter.Input)
}
