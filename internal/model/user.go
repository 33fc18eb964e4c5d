// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// UserIdentity is the authenticated user as reported by the backend.
type UserIdentity struct {
	ID          int64  `json:"id"`
	OpenID      string `json:"openId"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// Name returns the best available display name for the user.
func (u *UserIdentity) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.OpenID
}
