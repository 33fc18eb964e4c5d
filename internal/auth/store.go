// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/jeranaias/chatgate-tui/internal/model"
	"github.com/jeranaias/chatgate-tui/internal/storage"
)

// IdentityFetcher fetches the authenticated user from the backend.
// Implemented by the API client.
type IdentityFetcher interface {
	Me(ctx context.Context) (*model.UserIdentity, error)
}

// =============================================================================
// CREDENTIAL STORE
// =============================================================================

// Store is the process-wide credential holder shared by the validator, the
// request gateway, and the chat session. It is constructed once and passed by
// reference; all mutation is total replacement, never partial update.
type Store struct {
	mu    sync.Mutex
	token string
	user  *model.UserIdentity

	state *storage.StateStore
}

// NewStore creates a credential store backed by the given state database and
// loads whatever credential it holds. state may be nil for an ephemeral,
// memory-only store.
func NewStore(state *storage.StateStore) *Store {
	s := &Store{state: state}
	s.load()
	return s
}

// load pulls the persisted token and identity into memory.
// Persistence failures degrade to an empty credential.
func (s *Store) load() {
	if s.state == nil {
		return
	}

	token, err := s.state.Token()
	if err != nil {
		log.Printf("auth: failed to load stored token: %v", err)
		return
	}
	s.token = token

	data, err := s.state.User()
	if err != nil {
		log.Printf("auth: failed to load stored identity: %v", err)
		return
	}
	if len(data) > 0 {
		var user model.UserIdentity
		if err := json.Unmarshal(data, &user); err != nil {
			log.Printf("auth: discarding unreadable stored identity: %v", err)
			return
		}
		s.user = &user
	}
}

// Init applies the startup contract: a stored credential that is already
// expired (or malformed) is cleared before any authenticated call is made.
// Idempotent; calling Init on an empty store does nothing.
func (s *Store) Init() {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token != "" && !validToken(token, time.Now()) {
		s.Clear()
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Token returns the current bearer token, or "" when unauthenticated.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns the cached identity, or nil.
func (s *Store) User() *model.UserIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// IsValid reports whether a well-formed, unexpired token is present.
// Decode failures count as invalid; this never returns an error.
func (s *Store) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validToken(s.token, time.Now())
}

// Claims returns the decoded claims of the current token, or nil when the
// token is absent or malformed. Claims are derived lazily and never trusted
// without IsValid.
func (s *Store) Claims() *Claims {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return nil
	}
	claims, err := ParseClaims(s.token)
	if err != nil {
		return nil
	}
	return claims
}

// =============================================================================
// MUTATION
// =============================================================================

// SetToken replaces the credential. The cached identity is dropped until
// RefreshIdentity repopulates it from the backend.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.user = nil
	s.mu.Unlock()

	if s.state != nil {
		if err := s.state.SetToken(token); err != nil {
			log.Printf("auth: failed to persist token: %v", err)
		}
	}
}

// setUser caches and persists the identity.
func (s *Store) setUser(user *model.UserIdentity) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	if s.state != nil {
		data, err := json.Marshal(user)
		if err == nil {
			err = s.state.SetUser(data)
		}
		if err != nil {
			log.Printf("auth: failed to persist identity: %v", err)
		}
	}
}

// Clear destroys the credential and the cached identity together.
// Called on logout, on detected expiry, and on any authentication failure
// from the backend; all three take the same path.
func (s *Store) Clear() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if s.state != nil {
		if err := s.state.ClearAuth(); err != nil {
			log.Printf("auth: failed to clear persisted credential: %v", err)
		}
	}
}

// =============================================================================
// IDENTITY REFRESH
// =============================================================================

// RefreshIdentity fetches the user identity and caches it. A fetch failure is
// treated the same as an invalid credential: the store is cleared entirely.
// No-op when no token is present.
func (s *Store) RefreshIdentity(ctx context.Context, fetcher IdentityFetcher) error {
	if s.Token() == "" {
		return nil
	}

	user, err := fetcher.Me(ctx)
	if err != nil {
		log.Printf("auth: identity refresh failed, clearing credential: %v", err)
		s.Clear()
		return err
	}

	s.setUser(user)
	return nil
}
