// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme defines the color palette for the console. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
//
// The fields cover universal chrome (text, selection, borders) and the
// semantic categories the console renders: lifecycle states, admission
// verdicts, and journal event kinds.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Lifecycle state colors.
	StateUnstarted         lipgloss.Color
	StateRunning           lipgloss.Color
	StateYielded           lipgloss.Color
	StateFaulted           lipgloss.Color
	StateCredentialsFailed lipgloss.Color
	StateStopped           lipgloss.Color

	// Admission verdict marks in the VERIFIED column.
	VerifiedMark   lipgloss.Color
	UnverifiedMark lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	ErrorText        lipgloss.Color

	// Filter match highlighting.
	SearchHighlightBackground lipgloss.Color
}

// StateColor returns the color for a lifecycle state name. Unknown
// values return FaintText.
func (theme Theme) StateColor(state string) lipgloss.Color {
	switch state {
	case "unstarted":
		return theme.StateUnstarted
	case "running":
		return theme.StateRunning
	case "yielded":
		return theme.StateYielded
	case "faulted":
		return theme.StateFaulted
	case "credentials-failed":
		return theme.StateCredentialsFailed
	case "stopped":
		return theme.StateStopped
	default:
		return theme.FaintText
	}
}

// EventKindColor returns the color for a journal event kind. Denials
// and rejections share the fault palette so trouble stands out in the
// stream; routine lifecycle records stay muted.
func (theme Theme) EventKindColor(kind string) lipgloss.Color {
	switch kind {
	case "admit":
		return theme.StateRunning
	case "reject", "deny":
		return theme.StateFaulted
	case "fault":
		return theme.StateYielded
	case "stop", "unload":
		return theme.StateStopped
	default:
		return theme.FaintText
	}
}

// DefaultTheme is the built-in dark-terminal color scheme. Designed
// for 256-color terminals with a dark background (the common case for
// development environments and tmux sessions).
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	StateUnstarted:         lipgloss.Color("75"),  // blue
	StateRunning:           lipgloss.Color("114"), // green
	StateYielded:           lipgloss.Color("220"), // amber
	StateFaulted:           lipgloss.Color("208"), // orange
	StateCredentialsFailed: lipgloss.Color("196"), // bright red
	StateStopped:           lipgloss.Color("245"), // gray

	VerifiedMark:   lipgloss.Color("114"),
	UnverifiedMark: lipgloss.Color("240"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	ErrorText:        lipgloss.Color("196"),

	SearchHighlightBackground: lipgloss.Color("58"), // dark amber
}

// LightTheme adjusts the palette for light terminal backgrounds, where
// the dark scheme's faint grays wash out.
var LightTheme = Theme{
	NormalText: lipgloss.Color("235"),
	FaintText:  lipgloss.Color("243"),

	SelectedBackground: lipgloss.Color("253"),
	SelectedForeground: lipgloss.Color("232"),

	StateUnstarted:         lipgloss.Color("26"),  // blue
	StateRunning:           lipgloss.Color("28"),  // green
	StateYielded:           lipgloss.Color("130"), // amber
	StateFaulted:           lipgloss.Color("166"), // orange
	StateCredentialsFailed: lipgloss.Color("160"), // red
	StateStopped:           lipgloss.Color("243"), // gray

	VerifiedMark:   lipgloss.Color("28"),
	UnverifiedMark: lipgloss.Color("249"),

	HeaderForeground: lipgloss.Color("232"),
	BorderColor:      lipgloss.Color("249"),
	HelpText:         lipgloss.Color("245"),
	ErrorText:        lipgloss.Color("160"),

	SearchHighlightBackground: lipgloss.Color("228"), // pale amber
}

// DetectTheme picks the dark or light palette by querying the
// terminal's background color through termenv. Falls back to the dark
// scheme when the terminal cannot be queried (pipes, dumb terminals).
func DetectTheme() Theme {
	if termenv.HasDarkBackground() {
		return DefaultTheme
	}
	return LightTheme
}
