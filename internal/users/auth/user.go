// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, Session) and the dual-backend
persistence strategy: a document database as the preferred store with a
flat-file store as fallback and best-effort mirror.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no
transport dependencies and encapsulate all business rules related to user
identity. Storage backends are interchangeable behind [Store]; callers above
the [Selector] cannot observe which backend is active.
*/
package auth

import (
	"time"

	"github.com/taibuivan/tradegate/internal/platform/sec"
)

// # Domain Entities

// User represents a registered account on the platform.
//
// Username is the immutable lookup key; Email is unique but mutable through
// profile updates. Accounts are never physically deleted — deactivation via
// IsActive=false is the removal path.
type User struct {
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"` // Explicitly omitted from JSON for security.
	FullName     string         `json:"full_name"`
	Role         sec.UserRole   `json:"role"`
	IsActive     bool           `json:"is_active"`
	Preferences  map[string]any `json:"preferences,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	LastLogin    *time.Time     `json:"last_login,omitempty"`
}

// Clone returns a deep copy safe to hand across store boundaries.
func (user *User) Clone() *User {
	copied := *user
	if user.Preferences != nil {
		copied.Preferences = make(map[string]any, len(user.Preferences))
		for key, value := range user.Preferences {
			copied.Preferences[key] = value
		}
	}
	if user.LastLogin != nil {
		lastLogin := *user.LastLogin
		copied.LastLogin = &lastLogin
	}
	return &copied
}

// Session represents an active login identified by an opaque bearer token.
type Session struct {
	Token        string    `json:"-"` // Never serialized back to clients after issuance.
	Username     string    `json:"username"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Clone returns a copy safe to hand across store boundaries.
func (session *Session) Clone() *Session {
	copied := *session
	return &copied
}

// Expired reports whether the session is past its expiry at the given instant.
//
// The boundary is exclusive: a session is valid strictly while now < ExpiresAt.
func (session *Session) Expired(now time.Time) bool {
	return !now.Before(session.ExpiresAt)
}

// UserStats is the aggregate snapshot returned by the stats endpoint.
type UserStats struct {
	TotalUsers     int `json:"total_users"`
	ActiveUsers    int `json:"active_users"`
	TotalSessions  int `json:"total_sessions"`
	ActiveSessions int `json:"active_sessions"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldFullName        = "full_name"
	FieldPreferences     = "preferences"
	FieldToken           = "token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldUser            = "user"
	FieldMessage         = "message"
	FieldValid           = "valid"
)
