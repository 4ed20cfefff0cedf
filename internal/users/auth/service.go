// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/tradegate/internal/platform/apperr"
	"github.com/taibuivan/tradegate/internal/platform/sec"
	"github.com/taibuivan/tradegate/internal/platform/validate"
	"github.com/taibuivan/tradegate/pkg/pointer"
)

// # Service

// invalidCredentialsMessage is returned for every authentication failure —
// unknown user, deactivated account or wrong password. A uniform message
// prevents probing which usernames exist.
const invalidCredentialsMessage = "Invalid username or password"

// Service implements the identity and session business rules on top of a
// [Store]. It is transport-agnostic; the HTTP layer is a thin shell over it.
type Service struct {
	store Store
	log   *slog.Logger

	// now is the clock source, injectable for expiry tests.
	now func() time.Time
}

// NewService builds the identity service over the given store.
func NewService(store Store, log *slog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With("service", "auth"),
		now:   time.Now,
	}
}

// # Registration

// RegisterInput carries the fields accepted at account creation.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

/*
Register validates input, hashes the credential and creates the account.

New accounts are active regular users with the default preference set.
Uniqueness of username and email is enforced by the store rather than by a
read-then-write check, so concurrent registrations cannot race past it.

Parameters:
  - ctx: request-scoped context.
  - input: the registration payload.

Returns:
  - *User: the created account.
  - error: apperr.ValidationError on policy violations, apperr.Conflict on
    duplicate identity.
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	validator := &validate.Validator{}
	validator.
		Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, MinUsernameLength).
		MaxLen(FieldUsername, input.Username, MaxUsernameLength).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Password(FieldPassword, input.Password, MinPasswordLength).
		MaxLen(FieldFullName, input.FullName, MaxFullNameLength)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	user := &User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: sec.HashPassword(input.Password),
		FullName:     input.FullName,
		Role:         sec.RoleUser,
		IsActive:     true,
		Preferences:  DefaultPreferences(),
		CreatedAt:    service.now(),
	}
	if err := service.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	service.log.Info("user registered", "username", user.Username)
	return user, nil
}

// # Authentication

/*
Authenticate verifies a username/password pair.

Every failure path — unknown user, deactivated account, wrong password —
returns the same apperr.Unauthorized message. The last-login timestamp is
updated best-effort; a bookkeeping failure never blocks a valid login.

Returns:
  - *User: the authenticated account.
  - error: apperr.Unauthorized with a uniform message on any failure.
*/
func (service *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := service.store.GetUser(ctx, username)
	if err != nil {
		return nil, apperr.Unauthorized(invalidCredentialsMessage)
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized(invalidCredentialsMessage)
	}
	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.Unauthorized(invalidCredentialsMessage)
	}

	lastLogin := service.now()
	user.LastLogin = &lastLogin
	if err := service.store.UpdateUser(ctx, user); err != nil {
		service.log.Warn("could not record last login", "username", username, "error", err)
	}
	return user, nil
}

/*
CreateSession issues a fresh session for an already-authenticated user.

Any earlier sessions of the user are purged first, enforcing a single active
session per account. The returned token is the only copy ever exposed.

Returns:
  - string: the opaque bearer token.
  - *Session: the stored session.
  - error: on token generation or storage failure.
*/
func (service *Service) CreateSession(ctx context.Context, username string) (string, *Session, error) {
	token, err := sec.GenerateSecureToken(SessionTokenLength)
	if err != nil {
		return "", nil, fmt.Errorf("generate session token: %w", err)
	}

	if purged, err := service.store.DeleteUserSessions(ctx, username); err != nil {
		service.log.Warn("could not purge previous sessions", "username", username, "error", err)
	} else if purged > 0 {
		service.log.Debug("purged previous sessions", "username", username, "count", purged)
	}

	now := service.now()
	session := &Session{
		Token:        token,
		Username:     username,
		CreatedAt:    now,
		ExpiresAt:    now.Add(SessionTTL),
		LastActivity: now,
	}
	if err := service.store.CreateSession(ctx, session); err != nil {
		return "", nil, err
	}
	service.log.Info("session created", "username", username)
	return token, session, nil
}

// Login authenticates the credential pair and issues a session in one step.
func (service *Service) Login(ctx context.Context, username, password string) (string, *User, error) {
	user, err := service.Authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	token, _, err := service.CreateSession(ctx, user.Username)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// # Session Validation

// resolveSession loads the session behind a token and enforces expiry and
// account state. Expired sessions are purged lazily on the read path.
func (service *Service) resolveSession(ctx context.Context, token string) (*User, *Session, error) {
	session, err := service.store.GetSession(ctx, token)
	if err != nil {
		return nil, nil, apperr.Unauthorized("Invalid or expired session")
	}
	if session.Expired(service.now()) {
		if err := service.store.DeleteSession(ctx, token); err != nil {
			service.log.Warn("could not purge expired session", "error", err)
		}
		return nil, nil, apperr.Unauthorized("Invalid or expired session")
	}

	user, err := service.store.GetUser(ctx, session.Username)
	if err != nil || !user.IsActive {
		return nil, nil, apperr.Unauthorized("Invalid or expired session")
	}

	session.LastActivity = service.now()
	if err := service.store.UpdateSession(ctx, session); err != nil {
		service.log.Warn("could not record session activity", "error", err)
	}
	return user, session, nil
}

// ValidateSession reports whether a token identifies a live session and, when
// it does, the owning username. Validation refreshes the session's
// last-activity timestamp but never extends its expiry.
func (service *Service) ValidateSession(ctx context.Context, token string) (bool, string) {
	user, _, err := service.resolveSession(ctx, token)
	if err != nil {
		return false, ""
	}
	return true, user.Username
}

// VerifySession resolves a bearer token into a request principal. It is the
// hook the HTTP middleware authenticates with.
func (service *Service) VerifySession(ctx context.Context, token string) (*sec.Principal, error) {
	user, _, err := service.resolveSession(ctx, token)
	if err != nil {
		return nil, err
	}
	return &sec.Principal{Username: user.Username, Role: user.Role}, nil
}

// Logout destroys the session behind the token. Logging out an unknown or
// already-destroyed token succeeds; the end state is identical.
func (service *Service) Logout(ctx context.Context, token string) error {
	return service.store.DeleteSession(ctx, token)
}

// # Account Management

// UpdateProfileInput carries the mutable profile fields. Nil pointers leave
// the corresponding field untouched.
type UpdateProfileInput struct {
	Email       *string        `json:"email"`
	FullName    *string        `json:"full_name"`
	Preferences map[string]any `json:"preferences"`
}

/*
UpdateProfile applies a partial update to the caller's account.

Email changes are validated and re-checked for uniqueness by the store.
Preferences, when present, replace the stored set wholesale.

Returns:
  - *User: the updated account.
  - error: apperr.ValidationError, apperr.Conflict or apperr.NotFound.
*/
func (service *Service) UpdateProfile(ctx context.Context, username string, input UpdateProfileInput) (*User, error) {
	user, err := service.store.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}

	validator := &validate.Validator{}
	if input.Email != nil {
		validator.Required(FieldEmail, *input.Email).Email(FieldEmail, *input.Email)
	}
	if input.FullName != nil {
		validator.MaxLen(FieldFullName, *input.FullName, MaxFullNameLength)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	user.Email = pointer.Fallback(input.Email, user.Email)
	user.FullName = pointer.Fallback(input.FullName, user.FullName)
	if input.Preferences != nil {
		user.Preferences = input.Preferences
	}
	if err := service.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	service.log.Info("profile updated", "username", username)
	return user, nil
}

/*
ChangePassword rotates the caller's credential.

The current password must verify first; the new password must satisfy the
same policy as registration. Existing sessions stay valid — rotating a
credential is not a remote-logout mechanism.

Returns:
  - error: apperr.Unauthorized when the current password does not verify,
    apperr.ValidationError when the new one violates policy.
*/
func (service *Service) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	user, err := service.store.GetUser(ctx, username)
	if err != nil {
		return err
	}
	if !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	validator := &validate.Validator{}
	validator.Password(FieldNewPassword, newPassword, MinPasswordLength)
	if err := validator.Err(); err != nil {
		return err
	}

	user.PasswordHash = sec.HashPassword(newPassword)
	if err := service.store.UpdateUser(ctx, user); err != nil {
		return err
	}
	service.log.Info("password changed", "username", username)
	return nil
}

// GetUser returns the account behind a username.
func (service *Service) GetUser(ctx context.Context, username string) (*User, error) {
	return service.store.GetUser(ctx, username)
}

// # Statistics

// Stats aggregates account and session counts. An "active" session is one
// whose expiry is still in the future at call time.
func (service *Service) Stats(ctx context.Context) (*UserStats, error) {
	users, err := service.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := service.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	stats := &UserStats{TotalUsers: len(users), TotalSessions: len(sessions)}
	for _, user := range users {
		if user.IsActive {
			stats.ActiveUsers++
		}
	}
	now := service.now()
	for _, session := range sessions {
		if !session.Expired(now) {
			stats.ActiveSessions++
		}
	}
	return stats, nil
}
