// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - whoami, logout, and config display commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jeranaias/chatgate-tui/internal/api"
	"github.com/jeranaias/chatgate-tui/internal/auth"
	"github.com/jeranaias/chatgate-tui/internal/config"
)

// RunWhoami prints the signed-in user's identity.
func RunWhoami(ctx context.Context, client *api.Client, store *auth.Store, args Args) error {
	if !store.IsValid() {
		return errors.New("not signed in (run 'chatgate login')")
	}

	// Revalidate against the backend so a revoked account is reported
	// instead of stale local state.
	if err := store.RefreshIdentity(ctx, client); err != nil {
		return fmt.Errorf("could not verify identity: %w", err)
	}

	user := store.User()
	if user == nil {
		return errors.New("not signed in (run 'chatgate login')")
	}

	if args.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(user)
	}

	fmt.Println(LabelStyle.Render("User") + ValueStyle.Render(user.Name()))
	fmt.Println(LabelStyle.Render("Open ID") + ValueStyle.Render(user.OpenID))
	if claims := store.Claims(); claims != nil {
		fmt.Println(LabelStyle.Render("Token expires") + ValueStyle.Render(claims.ExpiryTime().Format("2006-01-02 15:04:05")))
	}
	return nil
}

// RunLogout clears stored credentials.
func RunLogout(store *auth.Store, args Args) error {
	store.Clear()
	if !args.Quiet {
		fmt.Println(SuccessStyle.Render("Signed out."))
	}
	return nil
}

// RunConfig displays the effective configuration.
func RunConfig(cfg *config.Config, args Args) error {
	if len(args.Raw) > 0 && args.Subcommand != "show" {
		return fmt.Errorf("unknown config subcommand: %s", args.Subcommand)
	}

	if args.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	fmt.Println(TitleStyle.Render("chatgate configuration"))
	fmt.Println(LabelStyle.Render("Server") + ValueStyle.Render(cfg.Server.BaseURL))
	fmt.Println(LabelStyle.Render("Timeout") + ValueStyle.Render(fmt.Sprintf("%ds", cfg.Server.TimeoutSecs)))
	fmt.Println(LabelStyle.Render("Theme") + ValueStyle.Render(cfg.UI.Theme))
	fmt.Println(LabelStyle.Render("Markdown") + ValueStyle.Render(fmt.Sprintf("%v", cfg.UI.Markdown)))
	return nil
}
