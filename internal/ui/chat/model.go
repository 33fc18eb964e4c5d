// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"

	chatsession "github.com/jeranaias/chatgate-tui/internal/chat"
	"github.com/jeranaias/chatgate-tui/internal/config"
	"github.com/jeranaias/chatgate-tui/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Session state machine; folding happens on a background goroutine,
	// the model only reads transcript snapshots.
	session *chatsession.Session

	// Styling
	theme *styles.Theme
	cfg   config.UIConfig

	// Signed-in display name for the header
	username string

	// Components
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	// Markdown renderer for finished assistant messages.
	// Nil when rendering is disabled or initialization failed.
	renderer *glamour.TermRenderer

	// updates receives a signal whenever the session transcript changes.
	// Buffered so the streaming goroutine never blocks on a slow UI.
	updates chan struct{}

	// Key bindings
	keys keyMap

	// Dimensions
	width  int
	height int
	ready  bool

	quitting bool
}

// New creates the chat view model bound to a session.
func New(session *chatsession.Session, cfg config.UIConfig, username string) Model {
	theme := styles.ForName(cfg.Theme)

	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Prompt = theme.InputPrompt.Render("> ")
	input.PlaceholderStyle = theme.InputPlaceholder
	input.CharLimit = 4000
	input.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = theme.Spinner

	updates := make(chan struct{}, 1)
	session.SetUpdateHook(func() {
		// Coalesce bursts; one pending signal is enough to trigger a redraw.
		select {
		case updates <- struct{}{}:
		default:
		}
	})

	return Model{
		session:  session,
		theme:    theme,
		cfg:      cfg,
		username: username,
		input:    input,
		viewport: vp,
		spinner:  sp,
		renderer: newRenderer(cfg, 80),
		updates:  updates,
		keys:     defaultKeyMap(),
	}
}

// newRenderer builds the glamour renderer for the given wrap width.
// Returns nil when markdown rendering is disabled or unavailable.
func newRenderer(cfg config.UIConfig, width int) *glamour.TermRenderer {
	if !cfg.Markdown {
		return nil
	}

	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}

	var style glamour.TermRendererOption
	switch cfg.Theme {
	case "light":
		style = glamour.WithStandardStyle("light")
	case "dark":
		style = glamour.WithStandardStyle("dark")
	default:
		style = glamour.WithAutoStyle()
	}

	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wrap))
	if err != nil {
		// Fall back to plain text if renderer initialization fails
		return nil
	}
	return renderer
}

// Sending reports whether a chat stream is in flight.
func (m Model) Sending() bool {
	return m.session.State() == chatsession.StateSending
}
