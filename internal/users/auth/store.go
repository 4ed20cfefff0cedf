// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/taibuivan/tradegate/internal/platform/apperr"
)

// # Storage Contract

// ErrBackendUnavailable signals that a storage backend cannot serve requests.
// It is an internal routing signal for backend selection and mirroring; it is
// never surfaced to API clients.
var ErrBackendUnavailable = errors.New("auth: storage backend unavailable")

// Store is the persistence contract shared by every backend. The file store,
// the database store and the [Selector] facade all implement it, so the
// service layer stays backend-agnostic.
//
// All operations key users by username and sessions by token. Absent records
// are reported as apperr.NotFound; uniqueness violations as apperr.Conflict.
// Delete operations are idempotent and succeed when the target is absent.
type Store interface {
	// Name identifies the backend for logs and health reporting.
	Name() string

	// Ping verifies the backend can currently serve requests.
	Ping(ctx context.Context) error

	// # User Records

	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, username string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	ListUsers(ctx context.Context) ([]*User, error)

	// # Session Records

	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, token string) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) error
	DeleteSession(ctx context.Context, token string) error

	// DeleteUserSessions removes every session belonging to the given user
	// and returns how many were removed.
	DeleteUserSessions(ctx context.Context, username string) (int, error)

	// DeleteExpiredSessions removes every session whose expiry is at or
	// before the given instant and returns how many were removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)

	ListSessions(ctx context.Context) ([]*Session, error)
}

// # Shared Store Errors

func errUserNotFound() *apperr.AppError {
	return apperr.NotFound("User")
}

func errSessionNotFound() *apperr.AppError {
	return apperr.NotFound("Session")
}

func errDuplicateUser() *apperr.AppError {
	return apperr.Conflict("Username or email is already registered")
}

func errDuplicateSession() *apperr.AppError {
	return apperr.Conflict("Session token already exists")
}
