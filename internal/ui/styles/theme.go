// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the chatgate TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderUser  lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserText       lipgloss.Style
	AssistantText  lipgloss.Style
	Timestamp      lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// SPINNER AND ERROR STYLES
	// ==========================================================================

	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style
	ErrorText    lipgloss.Style
}

// ForName returns the theme matching a configured name ("dark", "light",
// "auto"). Unknown names fall back to dark.
func ForName(name string) *Theme {
	switch name {
	case "light":
		return Light()
	case "auto":
		if termenv.HasDarkBackground() {
			return Dark()
		}
		return Light()
	default:
		return Dark()
	}
}

// Dark returns the default dark theme.
func Dark() *Theme {
	return &Theme{
		IsDark:       true,
		ColorProfile: termenv.ColorProfile(),

		Header: lipgloss.NewStyle().
			Padding(0, 1).
			Background(lipgloss.Color("236")),
		HeaderTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		HeaderUser: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),

		UserLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("213")),
		AssistantLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		UserText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")),
		AssistantText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		Timestamp: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		InputContainer: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		InputPrompt: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		InputPlaceholder: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Background(lipgloss.Color("235")).
			Padding(0, 1),
		ShortcutKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")),
		ShortcutDesc: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")),

		Spinner: lipgloss.NewStyle().
			Foreground(lipgloss.Color("213")),
		ThinkingText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true),
		ErrorText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
	}
}

// Light returns the light theme.
func Light() *Theme {
	return &Theme{
		IsDark:       false,
		ColorProfile: termenv.ColorProfile(),

		Header: lipgloss.NewStyle().
			Padding(0, 1).
			Background(lipgloss.Color("254")),
		HeaderTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("25")),
		HeaderUser: lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")),

		UserLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("127")),
		AssistantLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("25")),
		UserText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("235")),
		AssistantText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("236")),
		Timestamp: lipgloss.NewStyle().
			Foreground(lipgloss.Color("249")),

		InputContainer: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("250")).
			Padding(0, 1),
		InputPrompt: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("25")),
		InputPlaceholder: lipgloss.NewStyle().
			Foreground(lipgloss.Color("249")),

		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Background(lipgloss.Color("253")).
			Padding(0, 1),
		ShortcutKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("236")),
		ShortcutDesc: lipgloss.NewStyle().
			Foreground(lipgloss.Color("246")),

		Spinner: lipgloss.NewStyle().
			Foreground(lipgloss.Color("127")),
		ThinkingText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Italic(true),
		ErrorText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("124")),
	}
}
