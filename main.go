// chatgate - a terminal client for a streaming chat backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatgate-tui/internal/api"
	"github.com/jeranaias/chatgate-tui/internal/auth"
	chatsession "github.com/jeranaias/chatgate-tui/internal/chat"
	"github.com/jeranaias/chatgate-tui/internal/cli"
	"github.com/jeranaias/chatgate-tui/internal/config"
	"github.com/jeranaias/chatgate-tui/internal/storage"
	uichat "github.com/jeranaias/chatgate-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion()
		return
	case cli.CmdHelp:
		cli.PrintUsage()
		return
	}

	cfg, err := loadConfig(args)
	if err != nil {
		fatal(err)
	}

	switch cmd {
	case cli.CmdConfig:
		if err := cli.RunConfig(cfg, args); err != nil {
			fatal(err)
		}
		return
	}

	// Everything below needs the credential store and API client.
	state, err := storage.OpenDefault()
	if err != nil {
		fatal(fmt.Errorf("could not open state store: %w", err))
	}
	defer state.Close()

	store := auth.NewStore(state)
	store.Init()

	client := api.NewClient(cfg.Server.BaseURL, store).
		WithTimeout(time.Duration(cfg.Server.TimeoutSecs) * time.Second)

	ctx := context.Background()

	switch cmd {
	case cli.CmdLogin:
		if err := cli.RunLogin(ctx, client, store); err != nil {
			fatal(err)
		}

	case cli.CmdLogout:
		if err := cli.RunLogout(store, args); err != nil {
			fatal(err)
		}

	case cli.CmdWhoami:
		if err := cli.RunWhoami(ctx, client, store, args); err != nil {
			fatal(err)
		}

	case cli.CmdTUI:
		if err := runTUI(ctx, cfg, client, store); err != nil {
			fatal(err)
		}
	}
}

// loadConfig loads the configuration, honoring --config and --server.
func loadConfig(args cli.Args) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if args.Config != "" {
		cfg, err = config.LoadFromPath(args.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if args.Server != "" {
		cfg.Server.BaseURL = args.Server
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --server value: %w", err)
		}
	}

	config.SetGlobal(cfg)
	return cfg, nil
}

// runTUI starts the full-screen chat interface.
func runTUI(ctx context.Context, cfg *config.Config, client *api.Client, store *auth.Store) error {
	if !cli.IsTTY() {
		return fmt.Errorf("chatgate needs an interactive terminal (try 'chatgate help')")
	}

	if !store.IsValid() {
		return fmt.Errorf("not signed in (run 'chatgate login')")
	}

	// Refresh the identity up front; a revoked or expired credential must
	// send the user back to login instead of failing mid-chat.
	if err := store.RefreshIdentity(ctx, client); err != nil {
		return fmt.Errorf("sign-in expired, run 'chatgate login': %w", err)
	}

	username := ""
	if user := store.User(); user != nil {
		username = user.Name()
	}

	session := chatsession.NewSession(client)
	session.SetStreamDeadline(time.Duration(cfg.Server.StreamDeadlineSecs) * time.Second)

	// While the TUI owns the terminal, logs go to a file instead of stderr.
	if f := openLogFile(); f != nil {
		log.SetOutput(f)
		defer func() {
			log.SetOutput(os.Stderr)
			f.Close()
		}()
	}

	program := tea.NewProgram(
		uichat.New(session, cfg.UI, username),
		tea.WithAltScreen(),
	)

	// A 401 from any call means the credential is no longer usable: clear
	// it and shut the UI down so the next run starts at login.
	client.WithUnauthorizedHook(func() {
		store.Clear()
		program.Quit()
	})

	_, err := program.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	if !store.IsValid() {
		fmt.Println("Session expired. Run 'chatgate login' to sign in again.")
	}
	return nil
}

// openLogFile opens the append-only log file under the config directory.
// Returns nil when the directory is unavailable; logging then stays on
// stderr, which the alternate screen will hide anyway.
func openLogFile() *os.File {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, "chatgate.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return f
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
