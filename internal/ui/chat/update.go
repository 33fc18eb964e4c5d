// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// update.go - Bubble Tea update loop for the chat view.
package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Init starts the component tickers and arms the session change listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		waitForChange(m.updates),
	)
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		headerHeight := 1
		inputHeight := 3
		statusHeight := 1
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - headerHeight - inputHeight - statusHeight
		if m.viewport.Height < 3 {
			m.viewport.Height = 3
		}
		m.input.Width = msg.Width - 6

		m.renderer = newRenderer(m.cfg, msg.Width)
		m.refreshTranscript()
		return m, nil

	case sessionChangedMsg:
		m.refreshTranscript()
		// Re-arm the listener for the next change.
		return m, waitForChange(m.updates)

	case sendFinishedMsg:
		m.refreshTranscript()
		return m, nil

	case spinner.TickMsg:
		if !m.Sending() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Send):
			content := strings.TrimSpace(m.input.Value())
			if content == "" || m.Sending() {
				return m, nil
			}
			m.input.Reset()
			return m, tea.Batch(m.sendCmd(content), m.spinner.Tick)

		case key.Matches(msg, m.keys.Clear):
			// Clearing mid-stream detaches the in-flight reply.
			m.session.Clear()
			m.refreshTranscript()
			return m, nil

		case key.Matches(msg, m.keys.PageUp):
			m.viewport.HalfViewUp()
			return m, nil

		case key.Matches(msg, m.keys.PageDown):
			m.viewport.HalfViewDown()
			return m, nil
		}
	}

	// Forward everything else to the components.
	var inputCmd, vpCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(inputCmd, vpCmd)
}

// sendCmd runs a blocking send (including the whole stream) off the UI loop.
// Transcript updates arrive through the session update hook while the
// command is in flight.
func (m Model) sendCmd(content string) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		session.Send(context.Background(), content)
		return sendFinishedMsg{}
	}
}
