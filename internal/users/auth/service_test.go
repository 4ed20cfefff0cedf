// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tradegate/internal/platform/apperr"
	"github.com/taibuivan/tradegate/internal/platform/sec"
	"github.com/taibuivan/tradegate/pkg/pointer"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	directory := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := NewFileStore(
		filepath.Join(directory, "users.json"),
		filepath.Join(directory, "sessions.json"),
		log,
	)
	require.NoError(t, err)
	return NewService(store, log)
}

func registerTestUser(t *testing.T, service *Service, username string) *User {
	t.Helper()
	user, err := service.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "Secr3t!",
		FullName: "Test User",
	})
	require.NoError(t, err)
	return user
}

/*
TestService_Register covers credential policy enforcement, defaults stamped
onto new accounts, and duplicate rejection.
*/
func TestService_Register(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	t.Run("valid_registration", func(t *testing.T) {
		user := registerTestUser(t, service, "alice")
		assert.Equal(t, sec.RoleUser, user.Role)
		assert.True(t, user.IsActive)
		assert.Equal(t, "dark", user.Preferences["theme"])
		assert.Len(t, user.PasswordHash, 64) // Hex digest, never the plaintext.
	})

	t.Run("duplicate_username_conflicts", func(t *testing.T) {
		_, err := service.Register(ctx, RegisterInput{
			Username: "alice",
			Email:    "alice2@example.com",
			Password: "Secr3t!",
		})
		assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
	})

	policyViolations := []struct {
		name  string
		input RegisterInput
	}{
		{name: "username_too_short", input: RegisterInput{Username: "al", Email: "al@example.com", Password: "Secr3t!"}},
		{name: "password_too_short", input: RegisterInput{Username: "carol", Email: "carol@example.com", Password: "a1"}},
		{name: "password_without_digit", input: RegisterInput{Username: "carol", Email: "carol@example.com", Password: "secrets"}},
		{name: "password_without_letter", input: RegisterInput{Username: "carol", Email: "carol@example.com", Password: "123456"}},
		{name: "invalid_email", input: RegisterInput{Username: "carol", Email: "not-an-email", Password: "Secr3t!"}},
	}
	for _, tc := range policyViolations {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Register(ctx, tc.input)
			assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
		})
	}
}

/*
TestService_Authenticate verifies that unknown users, deactivated accounts and
wrong passwords are indistinguishable to the caller.
*/
func TestService_Authenticate(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	registerTestUser(t, service, "alice")

	t.Run("success_records_last_login", func(t *testing.T) {
		user, err := service.Authenticate(ctx, "alice", "Secr3t!")
		require.NoError(t, err)
		require.NotNil(t, user.LastLogin)
	})

	deactivated := registerTestUser(t, service, "dormant")
	deactivated.IsActive = false
	require.NoError(t, service.store.UpdateUser(ctx, deactivated))

	failures := []struct {
		name     string
		username string
		password string
	}{
		{name: "unknown_user", username: "ghost", password: "Secr3t!"},
		{name: "wrong_password", username: "alice", password: "Wrong123"},
		{name: "deactivated_account", username: "dormant", password: "Secr3t!"},
	}
	for _, tc := range failures {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Authenticate(ctx, tc.username, tc.password)
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
			// Identical message on every path, so callers cannot probe
			// which usernames exist.
			assert.Equal(t, invalidCredentialsMessage, err.Error())
		})
	}
}

/*
TestService_Login verifies a fresh login invalidates the user's previous
session.
*/
func TestService_Login(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	registerTestUser(t, service, "alice")

	firstToken, _, err := service.Login(ctx, "alice", "Secr3t!")
	require.NoError(t, err)

	secondToken, _, err := service.Login(ctx, "alice", "Secr3t!")
	require.NoError(t, err)
	require.NotEqual(t, firstToken, secondToken)

	valid, _ := service.ValidateSession(ctx, firstToken)
	assert.False(t, valid, "earlier session must be purged on re-login")

	valid, username := service.ValidateSession(ctx, secondToken)
	assert.True(t, valid)
	assert.Equal(t, "alice", username)
}

/*
TestService_SessionExpiry drives the injected clock past the session TTL and
verifies the expired session is rejected and purged lazily.
*/
func TestService_SessionExpiry(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	registerTestUser(t, service, "alice")

	current := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return current }

	token, session, err := service.CreateSession(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, session.ExpiresAt.Equal(current.Add(SessionTTL)))

	t.Run("valid_before_expiry", func(t *testing.T) {
		current = current.Add(23 * time.Hour)
		valid, username := service.ValidateSession(ctx, token)
		assert.True(t, valid)
		assert.Equal(t, "alice", username)
	})

	t.Run("rejected_after_expiry", func(t *testing.T) {
		current = current.Add(2 * time.Hour) // 25h past issuance.
		valid, _ := service.ValidateSession(ctx, token)
		assert.False(t, valid)

		// Lazy purge removed the record, not just hid it.
		_, err := service.store.GetSession(ctx, token)
		assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
	})
}

/*
TestService_ValidateRefreshesActivityNotExpiry verifies validation bumps
last_activity while leaving the expiry untouched.
*/
func TestService_ValidateRefreshesActivityNotExpiry(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	registerTestUser(t, service, "alice")

	current := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return current }

	token, issued, err := service.CreateSession(ctx, "alice")
	require.NoError(t, err)

	current = current.Add(6 * time.Hour)
	valid, _ := service.ValidateSession(ctx, token)
	require.True(t, valid)

	stored, err := service.store.GetSession(ctx, token)
	require.NoError(t, err)
	assert.True(t, stored.LastActivity.Equal(current))
	assert.True(t, stored.ExpiresAt.Equal(issued.ExpiresAt), "expiry must not slide")
}

/*
TestService_VerifySession verifies the middleware hook resolves a token into
a principal carrying the account's role.
*/
func TestService_VerifySession(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	registerTestUser(t, service, "alice")

	token, _, err := service.CreateSession(ctx, "alice")
	require.NoError(t, err)

	principal, err := service.VerifySession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.Username)
	assert.Equal(t, sec.RoleUser, principal.Role)

	_, err = service.VerifySession(ctx, "bogus-token")
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
}

/*
TestService_Logout verifies logout destroys the session and is idempotent.
*/
func TestService_Logout(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	registerTestUser(t, service, "alice")

	token, _, err := service.CreateSession(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, service.Logout(ctx, token))
	valid, _ := service.ValidateSession(ctx, token)
	assert.False(t, valid)

	// Logging out again, or with a token that never existed, still succeeds.
	assert.NoError(t, service.Logout(ctx, token))
	assert.NoError(t, service.Logout(ctx, "never-issued"))
}

/*
TestService_UpdateProfile covers partial updates and email validation.
*/
func TestService_UpdateProfile(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	registerTestUser(t, service, "alice")

	t.Run("partial_update_leaves_other_fields", func(t *testing.T) {
		user, err := service.UpdateProfile(ctx, "alice", UpdateProfileInput{
			FullName: pointer.To("Alice Liddell"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Alice Liddell", user.FullName)
		assert.Equal(t, "alice@example.com", user.Email)
	})

	t.Run("preferences_replaced_wholesale", func(t *testing.T) {
		user, err := service.UpdateProfile(ctx, "alice", UpdateProfileInput{
			Preferences: map[string]any{"theme": "light"},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"theme": "light"}, user.Preferences)
	})

	t.Run("invalid_email_rejected", func(t *testing.T) {
		_, err := service.UpdateProfile(ctx, "alice", UpdateProfileInput{
			Email: pointer.To("not-an-email"),
		})
		assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
	})
}

/*
TestService_ChangePassword covers current-password verification, policy
enforcement on the new credential, and that sessions survive the rotation.
*/
func TestService_ChangePassword(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	registerTestUser(t, service, "alice")

	token, _, err := service.CreateSession(ctx, "alice")
	require.NoError(t, err)

	t.Run("wrong_current_password", func(t *testing.T) {
		err := service.ChangePassword(ctx, "alice", "Wrong123", "NewPass1")
		assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
	})

	t.Run("weak_new_password", func(t *testing.T) {
		err := service.ChangePassword(ctx, "alice", "Secr3t!", "short")
		assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
	})

	t.Run("successful_rotation", func(t *testing.T) {
		require.NoError(t, service.ChangePassword(ctx, "alice", "Secr3t!", "NewPass1"))

		_, err := service.Authenticate(ctx, "alice", "Secr3t!")
		assert.Error(t, err, "old password must stop working")

		_, err = service.Authenticate(ctx, "alice", "NewPass1")
		assert.NoError(t, err)

		valid, _ := service.ValidateSession(ctx, token)
		assert.True(t, valid, "existing sessions survive a rotation")
	})
}

/*
TestService_Bootstrap verifies the admin seed is created once and never reset.
*/
func TestService_Bootstrap(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	admin := BootstrapAdmin{
		Username: "admin",
		Email:    "admin@tradegate.local",
		Password: "Trade123456",
	}

	require.NoError(t, service.Bootstrap(ctx, admin))

	user, err := service.GetUser(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, sec.RoleAdmin, user.Role)

	// Re-running with a different password must not reset the credential.
	changed := admin
	changed.Password = "Changed999"
	require.NoError(t, service.Bootstrap(ctx, changed))

	_, err = service.Authenticate(ctx, "admin", "Trade123456")
	assert.NoError(t, err)
}

/*
TestService_Stats verifies aggregate counts distinguish active from expired
sessions and active from deactivated accounts.
*/
func TestService_Stats(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	registerTestUser(t, service, "alice")
	dormant := registerTestUser(t, service, "dormant")
	dormant.IsActive = false
	require.NoError(t, service.store.UpdateUser(ctx, dormant))

	current := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return current }

	_, _, err := service.CreateSession(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, service.store.CreateSession(ctx,
		testSession("tok-expired", "dormant", current.Add(-time.Hour))))

	stats, err := service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.ActiveUsers)
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 1, stats.ActiveSessions)
}
