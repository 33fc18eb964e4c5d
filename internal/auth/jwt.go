// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth holds the client credential: the backend-issued bearer token
// and the cached user identity.
//
// The client never verifies token signatures; it only reads claims to decide
// whether the token is worth presenting. Every decode failure is treated as
// an absent credential (fail-closed), never surfaced as an error.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrMalformedToken indicates a token that is not three base64url segments.
var ErrMalformedToken = errors.New("malformed token")

// Claims is the JWT payload issued by the backend.
type Claims struct {
	Subject     string `json:"sub"`
	OpenID      string `json:"openId"`
	DisplayName string `json:"displayName,omitempty"`
	IssuedAt    int64  `json:"iat"`
	ExpiresAt   int64  `json:"exp"`
}

// ParseClaims decodes the claims segment of a bearer token without verifying
// the signature. A token that is not exactly three dot-separated base64url
// segments, or whose payload is not a JSON object, is malformed.
func ParseClaims(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, ErrMalformedToken
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrMalformedToken
	}

	return &claims, nil
}

// expired reports whether the claims' expiry has passed at the given instant.
//
// The boundary is pinned: exp*1000 <= now (milliseconds) means expired, so a
// token expiring at exactly the current millisecond is already invalid.
func (c *Claims) expired(now time.Time) bool {
	return c.ExpiresAt*1000 <= now.UnixMilli()
}

// Expired reports whether the claims' expiry has passed.
func (c *Claims) Expired() bool {
	return c.expired(time.Now())
}

// ExpiryTime returns the expiry instant in local time.
func (c *Claims) ExpiryTime() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// validToken reports whether token is well-formed and unexpired at now.
// Any decode failure means invalid; this function never panics or errors.
func validToken(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	claims, err := ParseClaims(token)
	if err != nil {
		return false
	}
	return !claims.expired(now)
}
