// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for chatgate.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdLogout
	CmdWhoami
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool   // Output in JSON format
	Server  string // Override server base URL
	Config  string // Explicit config file path

	// Command-specific
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `chatgate - terminal chat client

Chatgate is a terminal client for a streaming chat backend.

It provides:
  - A full-screen chat TUI with streamed assistant replies
  - Markdown rendering of finished messages
  - Browser-based sign-in with invite-code activation
  - Local credential and conversation state storage

Usage:
  chatgate                   Start chat TUI (default)
  chatgate login             Sign in (opens a browser URL)
  chatgate logout            Clear stored credentials
  chatgate whoami            Show the signed-in user
  chatgate config [show]     Show effective configuration
  chatgate version           Show version information

Global Flags:
  --server URL    Override the backend base URL
  --config PATH   Load configuration from a specific file
  --json          Output in JSON format where supported
  -q, --quiet     Minimal output
  -v, --verbose   Debug output

Examples:
  chatgate                              Start the chat TUI
  chatgate login                        Sign in via the browser
  chatgate whoami --json                Print identity as JSON
  chatgate --server https://chat.example.com/api
                                        Point at a different backend

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("chatgate version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return parse(os.Args[1:])
}

func parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	// No remaining args: default to the TUI
	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining
	if len(remaining) > 0 {
		args.Subcommand = strings.ToLower(remaining[0])
	}

	switch cmd {
	case "tui", "chat":
		return CmdTUI, args

	case "login", "signin":
		return CmdLogin, args

	case "logout", "signout":
		return CmdLogout, args

	case "whoami", "me":
		return CmdWhoami, args

	case "config":
		return CmdConfig, args

	case "version", "-V":
		return CmdVersion, args

	case "help", "-h", "--help":
		return CmdHelp, args

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, args
	}
}

// parseGlobalFlags extracts global flags from the argument list and returns
// the remaining positional arguments.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	var remaining []string

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--json":
			args.JSON = true
		case "--server":
			if i+1 < len(argv) {
				i++
				args.Server = argv[i]
			}
		case "--config":
			if i+1 < len(argv) {
				i++
				args.Config = argv[i]
			}
		default:
			if strings.HasPrefix(arg, "--server=") {
				args.Server = strings.TrimPrefix(arg, "--server=")
			} else if strings.HasPrefix(arg, "--config=") {
				args.Config = strings.TrimPrefix(arg, "--config=")
			} else {
				remaining = append(remaining, arg)
			}
		}
	}

	return remaining, args
}
