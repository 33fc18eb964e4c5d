// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// sessionChangedMsg is sent when the chat session's transcript changed.
// Emitted by the session update hook, which runs on the streaming goroutine.
type sessionChangedMsg struct{}

// sendFinishedMsg is sent when a send operation (including its stream)
// completed and the session returned to idle.
type sendFinishedMsg struct{}

// =============================================================================
// COMMANDS
// =============================================================================

// waitForChange blocks on the session update channel and converts each
// notification into a sessionChangedMsg. The command re-arms itself from
// Update after every message.
func waitForChange(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-updates
		return sessionChangedMsg{}
	}
}
