// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/taibuivan/tradegate/internal/platform/sec"
)

/*
TestCodec_UserRoundTrip verifies a user entity survives encode/decode in both
backend shapes: keyed-by-username (file) and inline-key (database).
*/
func TestCodec_UserRoundTrip(t *testing.T) {
	lastLogin := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	original := &User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "deadbeef",
		FullName:     "Alice Liddell",
		Role:         sec.RoleAdmin,
		IsActive:     true,
		Preferences:  map[string]any{"theme": "dark", "auto_refresh": true},
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		LastLogin:    &lastLogin,
	}
	now := time.Now()

	tests := []struct {
		name        string
		includeKey  bool
		fallbackKey string
	}{
		{name: "file_shape_key_outside_document", includeKey: false, fallbackKey: "alice"},
		{name: "database_shape_key_inline", includeKey: true, fallbackKey: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			document := encodeUser(original, tc.includeKey, now)

			_, hasInlineKey := document["username"]
			assert.Equal(t, tc.includeKey, hasInlineKey)
			assert.Contains(t, document, "_created_at")
			assert.Contains(t, document, "_updated_at")

			decoded, err := decodeUser(document, tc.fallbackKey)
			require.NoError(t, err)

			assert.Equal(t, original.Username, decoded.Username)
			assert.Equal(t, original.Email, decoded.Email)
			assert.Equal(t, original.PasswordHash, decoded.PasswordHash)
			assert.Equal(t, original.FullName, decoded.FullName)
			assert.Equal(t, original.Role, decoded.Role)
			assert.Equal(t, original.IsActive, decoded.IsActive)
			assert.Equal(t, original.Preferences, decoded.Preferences)
			assert.True(t, original.CreatedAt.Equal(decoded.CreatedAt))
			require.NotNil(t, decoded.LastLogin)
			assert.True(t, lastLogin.Equal(*decoded.LastLogin))
		})
	}
}

/*
TestCodec_SessionRoundTrip verifies session entities keep nanosecond timestamp
precision across encoding.
*/
func TestCodec_SessionRoundTrip(t *testing.T) {
	issued := time.Date(2026, 5, 6, 7, 8, 9, 123456789, time.UTC)
	original := &Session{
		Token:        "tok-123",
		Username:     "alice",
		CreatedAt:    issued,
		ExpiresAt:    issued.Add(SessionTTL),
		LastActivity: issued,
	}

	document := encodeSession(original, false, issued)
	decoded, err := decodeSession(document, "tok-123")
	require.NoError(t, err)

	assert.Equal(t, "tok-123", decoded.Token)
	assert.Equal(t, "alice", decoded.Username)
	assert.True(t, original.ExpiresAt.Equal(decoded.ExpiresAt))
	assert.True(t, original.LastActivity.Equal(decoded.LastActivity))
}

/*
TestCodec_BSONWireRoundTrip pushes encoded documents through the same BSON
marshal/unmarshal cycle the database backend performs when reading into
bson.M. The BSON decoder renders embedded documents as ordered bson.D rather
than a map, so this covers the nested-preferences path a pure in-memory round
trip never exercises.
*/
func TestCodec_BSONWireRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	t.Run("user_with_preferences", func(t *testing.T) {
		original := &User{
			Username:     "alice",
			Email:        "alice@example.com",
			PasswordHash: "deadbeef",
			FullName:     "Alice Liddell",
			Role:         sec.RoleUser,
			IsActive:     true,
			Preferences:  DefaultPreferences(),
			CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 670000000, time.UTC),
		}

		raw, err := bson.Marshal(bson.M(encodeUser(original, true, now)))
		require.NoError(t, err)

		var stored bson.M
		require.NoError(t, bson.Unmarshal(raw, &stored))

		decoded, err := decodeUser(stored, "")
		require.NoError(t, err)

		assert.Equal(t, "alice", decoded.Username)
		assert.Equal(t, "dark", decoded.Preferences["theme"])
		assert.Equal(t, "crypto", decoded.Preferences["default_market"])
		assert.Equal(t, true, decoded.Preferences["auto_refresh"])
		assert.True(t, original.CreatedAt.Equal(decoded.CreatedAt))
		assert.Nil(t, decoded.LastLogin)
	})

	t.Run("session", func(t *testing.T) {
		original := &Session{
			Token:        "tok-wire",
			Username:     "alice",
			CreatedAt:    now,
			ExpiresAt:    now.Add(SessionTTL),
			LastActivity: now,
		}

		raw, err := bson.Marshal(bson.M(encodeSession(original, true, now)))
		require.NoError(t, err)

		var stored bson.M
		require.NoError(t, bson.Unmarshal(raw, &stored))

		decoded, err := decodeSession(stored, "")
		require.NoError(t, err)

		assert.Equal(t, "tok-wire", decoded.Token)
		assert.Equal(t, "alice", decoded.Username)
		assert.True(t, original.ExpiresAt.Equal(decoded.ExpiresAt))
	})
}

/*
TestCodec_MalformedDocuments verifies decoding rejects documents with missing
or mistyped required fields instead of producing half-built entities.
*/
func TestCodec_MalformedDocuments(t *testing.T) {
	valid := encodeUser(&User{
		Username:  "alice",
		Email:     "alice@example.com",
		Role:      sec.RoleUser,
		IsActive:  true,
		CreatedAt: time.Now(),
	}, true, time.Now())

	tests := []struct {
		name   string
		mutate func(document map[string]any)
	}{
		{name: "missing_email", mutate: func(d map[string]any) { delete(d, "email") }},
		{name: "mistyped_is_active", mutate: func(d map[string]any) { d["is_active"] = "yes" }},
		{name: "unparseable_created_at", mutate: func(d map[string]any) { d["created_at"] = "yesterday" }},
		{name: "mistyped_preferences", mutate: func(d map[string]any) { d["preferences"] = []any{"dark"} }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			document := make(map[string]any, len(valid))
			for key, value := range valid {
				document[key] = value
			}
			tc.mutate(document)

			_, err := decodeUser(document, "alice")
			require.Error(t, err)

			var malformed *errMalformedRecord
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

/*
TestCodec_TimestampOrdering verifies the fixed-width timestamp layout keeps
lexicographic order equal to chronological order, which both backends rely on
for expiry range deletes.
*/
func TestCodec_TimestampOrdering(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	instants := []time.Time{
		base,
		base.Add(1 * time.Nanosecond),
		base.Add(999 * time.Millisecond),
		base.Add(1 * time.Second),
		base.Add(24 * time.Hour),
	}

	for i := 1; i < len(instants); i++ {
		earlier := encodeTime(instants[i-1])
		later := encodeTime(instants[i])
		assert.Less(t, earlier, later)
	}
}
