// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package console

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the console.
type KeyMap struct {
	// Navigation (list movement on the processes tab, stream
	// scrolling on the events tab).
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Tab switching.
	TabProcesses key.Binding
	TabEvents    key.Binding

	// Filter.
	FilterActivate key.Binding // Enter filter mode on the processes tab.
	FilterClear    key.Binding // Clear filter and exit filter mode.

	// Lifecycle actions on the selected process. Only active when the
	// source implements [Lifecycle].
	StopProcess  key.Binding
	StartProcess key.Binding

	// Refresh forces an immediate poll instead of waiting for the
	// next interval.
	Refresh key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// (j/k) alongside standard arrow keys and page up/down.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("C-u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("C-d", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
	TabProcesses: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "processes"),
	),
	TabEvents: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "events"),
	),
	FilterActivate: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	FilterClear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "clear filter"),
	),
	StopProcess: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "stop"),
	),
	StartProcess: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "restart"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
