// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides persisted client state for chatgate.
//
// The state database holds the bearer token and the serialized user identity
// under independent keys. The two are written independently but always
// cleared together, in a single transaction, so a crash can never leave a
// token without its identity half-removed.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// State keys. Keyed independently, cleared as a pair.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// ErrNotFound indicates the requested key has no stored value.
var ErrNotFound = errors.New("state key not found")

// StateStore persists small keyed values in a local sqlite database.
type StateStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the state database at the given path.
func Open(path string) (*StateStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	return &StateStore{db: db}, nil
}

// OpenDefault opens the state database under the user's chatgate directory.
func OpenDefault() (*StateStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return Open(filepath.Join(homeDir, ".chatgate", "state.db"))
}

// OpenMemory opens an in-memory state store. Used by tests.
func OpenMemory() (*StateStore, error) {
	return Open(":memory:")
}

// Close closes the underlying database.
func (s *StateStore) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key, or ErrNotFound.
func (s *StateStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state key %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *StateStore) Set(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write state key %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *StateStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete state key %q: %w", key, err)
	}
	return nil
}

// =============================================================================
// CREDENTIAL STATE
// =============================================================================

// Token returns the stored bearer token, or "" if none is stored.
func (s *StateStore) Token() (string, error) {
	value, err := s.Get(KeyToken)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// SetToken stores the bearer token.
func (s *StateStore) SetToken(token string) error {
	return s.Set(KeyToken, []byte(token))
}

// User returns the serialized user identity, or nil if none is stored.
func (s *StateStore) User() ([]byte, error) {
	value, err := s.Get(KeyUser)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return value, err
}

// SetUser stores the serialized user identity.
func (s *StateStore) SetUser(data []byte) error {
	return s.Set(KeyUser, data)
}

// ClearAuth removes the token and the identity in one transaction.
// Clearing an already-empty store is a no-op.
func (s *StateStore) ClearAuth() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin clear transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM state WHERE key IN (?, ?)`, KeyToken, KeyUser); err != nil {
		return fmt.Errorf("failed to clear credential state: %w", err)
	}

	return tx.Commit()
}
