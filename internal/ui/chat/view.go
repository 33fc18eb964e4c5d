// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// view.go - Rendering for the chat view.
package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	chatsession "github.com/jeranaias/chatgate-tui/internal/chat"
	"github.com/jeranaias/chatgate-tui/internal/model"
)

// View renders the full chat screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// renderHeader renders the one-line title bar.
func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("chatgate")
	user := ""
	if m.username != "" {
		user = m.theme.HeaderUser.Render(m.username)
	}

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(user) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(title + strings.Repeat(" ", gap) + user)
}

// renderStatusBar renders the shortcut hints, or the spinner while a reply
// is streaming.
func (m Model) renderStatusBar() string {
	if m.Sending() {
		return m.theme.StatusBar.Width(m.width).Render(
			m.spinner.View() + " " + m.theme.ThinkingText.Render("waiting for reply..."))
	}

	hints := []string{
		m.theme.ShortcutKey.Render("enter") + m.theme.ShortcutDesc.Render(" send"),
		m.theme.ShortcutKey.Render("ctrl+l") + m.theme.ShortcutDesc.Render(" new conversation"),
		m.theme.ShortcutKey.Render("ctrl+c") + m.theme.ShortcutDesc.Render(" quit"),
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(hints, "  "))
}

// refreshTranscript rebuilds the viewport content from the session
// transcript and keeps the view pinned to the newest message.
func (m *Model) refreshTranscript() {
	wasAtBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if wasAtBottom {
		m.viewport.GotoBottom()
	}
}

// renderTranscript renders all messages in order.
func (m Model) renderTranscript() string {
	entries := m.session.Transcript()
	if len(entries) == 0 {
		return m.theme.ThinkingText.Render("Start the conversation by typing a message below.")
	}

	var b strings.Builder
	for i, entry := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderEntry(entry))
		b.WriteString("\n")
	}
	return b.String()
}

// renderEntry renders a single transcript entry.
func (m Model) renderEntry(entry chatsession.Entry) string {
	var label string
	switch entry.Role {
	case model.RoleUser:
		label = m.theme.UserLabel.Render(entry.Role.DisplayName())
	default:
		label = m.theme.AssistantLabel.Render(entry.Role.DisplayName())
	}

	body := entry.Content
	if entry.Role == model.RoleAssistant {
		if entry.Streaming && body == "" {
			body = m.theme.ThinkingText.Render("...")
		} else if !entry.Streaming && m.renderer != nil {
			// Finished replies get markdown rendering; streaming ones stay
			// plain so partial markup doesn't flicker.
			if rendered, err := m.renderer.Render(body); err == nil {
				return label + "\n" + strings.TrimRight(rendered, "\n")
			}
		}
	}

	style := m.theme.AssistantText
	if entry.Role == model.RoleUser {
		style = m.theme.UserText
	}
	return label + "\n" + style.Width(m.viewport.Width-2).Render(body)
}
