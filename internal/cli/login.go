// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// login.go - Interactive sign-in flow for chatgate.
//
// The flow mirrors the browser-based sign-in: the backend constructs an
// OAuth authorization URL, the user completes it in a browser, then pastes
// the resulting token back into the terminal. Accounts that are not yet
// activated additionally exchange an invite code for the final bearer token.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/chatgate-tui/internal/api"
	"github.com/jeranaias/chatgate-tui/internal/auth"
)

// RunLogin performs the interactive sign-in flow.
func RunLogin(ctx context.Context, client *api.Client, store *auth.Store) error {
	if err := RequiresTTY("sign in"); err != nil {
		return err
	}

	authURL, err := client.OAuthURL(ctx)
	if err != nil {
		return fmt.Errorf("could not fetch sign-in URL: %w", err)
	}

	fmt.Println(TitleStyle.Render("Sign in to chatgate"))
	fmt.Println("Open this URL in your browser and complete the sign-in:")
	fmt.Println()
	fmt.Println("  " + ValueStyle.Render(authURL))
	fmt.Println()
	fmt.Println(HintStyle.Render("After signing in, the browser shows a token. Paste it below."))

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	token, err := promptToken(line)
	if err != nil {
		return err
	}

	store.SetToken(token)
	if !store.IsValid() {
		store.Clear()
		return errors.New("the pasted token is expired or malformed")
	}

	// Fetch the identity. Accounts pending activation are rejected with 403;
	// those need an invite code exchanged for the final token.
	if err := store.RefreshIdentity(ctx, client); err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden {
			if err := activateWithInviteCode(ctx, line, client, store, token); err != nil {
				return err
			}
		} else {
			return fmt.Errorf("sign-in failed: %w", err)
		}
	}

	user := store.User()
	if user != nil {
		fmt.Println(SuccessStyle.Render("Signed in as " + user.Name()))
	} else {
		fmt.Println(SuccessStyle.Render("Signed in"))
	}
	return nil
}

// promptToken reads the pasted token, retrying on empty input.
func promptToken(line *liner.State) (string, error) {
	for {
		input, err := line.Prompt("Token: ")
		if err != nil {
			if err == liner.ErrPromptAborted {
				return "", errors.New("sign-in aborted")
			}
			return "", fmt.Errorf("could not read token: %w", err)
		}
		if token := strings.TrimSpace(input); token != "" {
			return token, nil
		}
		fmt.Println(HintStyle.Render("Token must not be empty."))
	}
}

// activateWithInviteCode exchanges an invite code plus the pending token for
// an activated bearer token, then retries the identity fetch.
func activateWithInviteCode(ctx context.Context, line *liner.State, client *api.Client, store *auth.Store, pendingToken string) error {
	fmt.Println()
	fmt.Println("This account needs an invite code to activate.")

	input, err := line.Prompt("Invite code: ")
	if err != nil {
		if err == liner.ErrPromptAborted {
			return errors.New("sign-in aborted")
		}
		return fmt.Errorf("could not read invite code: %w", err)
	}
	code := strings.TrimSpace(input)
	if code == "" {
		return errors.New("invite code must not be empty")
	}

	activated, err := client.ValidateInviteCode(ctx, code, pendingToken)
	if err != nil {
		store.Clear()
		return fmt.Errorf("invite code rejected: %w", err)
	}

	store.SetToken(activated)
	if err := store.RefreshIdentity(ctx, client); err != nil {
		return fmt.Errorf("sign-in failed after activation: %w", err)
	}
	return nil
}
