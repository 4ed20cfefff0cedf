// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/taibuivan/tradegate/internal/platform/sec"
)

// # Record Codec
//
// Both storage backends persist the same canonical document shape built from
// string-keyed maps, so a record written by one backend is readable by the
// other. Timestamps are stored as fixed-width UTC strings: fixed width keeps
// lexicographic ordering equal to chronological ordering, which the database
// backend relies on for range deletes over expires_at.

// timestampLayout renders all timestamps at nanosecond precision in UTC.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Bookkeeping fields attached on every encode and dropped on decode.
const (
	fieldRecordCreatedAt = "_created_at"
	fieldRecordUpdatedAt = "_updated_at"
)

// errMalformedRecord signals a stored document that cannot be decoded back
// into a domain entity. Stores log it and surface the record as absent.
type errMalformedRecord struct {
	kind  string
	field string
	cause error
}

func (e *errMalformedRecord) Error() string {
	return fmt.Sprintf("malformed %s record: field %q: %v", e.kind, e.field, e.cause)
}

func (e *errMalformedRecord) Unwrap() error { return e.cause }

func encodeTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func decodeTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

/*
encodeUser renders a user entity into its canonical stored document.

Parameters:
  - user: the entity to encode.
  - includeKey: whether to embed the username into the document itself. The
    database backend stores the key inline; the file backend keys the
    enclosing object by username and omits it.

Returns:
  - map[string]any: the stored document, including bookkeeping timestamps.
*/
func encodeUser(user *User, includeKey bool, now time.Time) map[string]any {
	document := map[string]any{
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"full_name":     user.FullName,
		"role":          string(user.Role),
		"is_active":     user.IsActive,
		"created_at":    encodeTime(user.CreatedAt),
		"last_login":    nil,
	}
	document[fieldRecordCreatedAt] = encodeTime(now)
	document[fieldRecordUpdatedAt] = encodeTime(now)
	if includeKey {
		document["username"] = user.Username
	}
	if user.Preferences != nil {
		document["preferences"] = user.Preferences
	}
	if user.LastLogin != nil {
		document["last_login"] = encodeTime(*user.LastLogin)
	}
	return document
}

/*
decodeUser reconstructs a user entity from its stored document.

Parameters:
  - document: the stored document.
  - fallbackKey: the username to use when the document carries no inline
    "username" field (file backend shape).

Returns:
  - *User: the decoded entity.
  - error: an errMalformedRecord when a required field is missing or has the
    wrong shape.
*/
func decodeUser(document map[string]any, fallbackKey string) (*User, error) {
	username := fallbackKey
	if inline, ok := document["username"].(string); ok && inline != "" {
		username = inline
	}
	if username == "" {
		return nil, &errMalformedRecord{kind: "user", field: "username", cause: errMissingField}
	}

	email, err := documentString(document, "email")
	if err != nil {
		return nil, &errMalformedRecord{kind: "user", field: "email", cause: err}
	}
	passwordHash, err := documentString(document, "password_hash")
	if err != nil {
		return nil, &errMalformedRecord{kind: "user", field: "password_hash", cause: err}
	}
	role, err := documentString(document, "role")
	if err != nil {
		return nil, &errMalformedRecord{kind: "user", field: "role", cause: err}
	}
	isActive, err := documentBool(document, "is_active")
	if err != nil {
		return nil, &errMalformedRecord{kind: "user", field: "is_active", cause: err}
	}
	createdAt, err := documentTime(document, "created_at")
	if err != nil {
		return nil, &errMalformedRecord{kind: "user", field: "created_at", cause: err}
	}

	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         sec.UserRole(role),
		IsActive:     isActive,
		CreatedAt:    createdAt,
	}

	// Optional fields tolerate absence but not malformation.
	if raw, ok := document["full_name"]; ok && raw != nil {
		fullName, ok := raw.(string)
		if !ok {
			return nil, &errMalformedRecord{kind: "user", field: "full_name", cause: errWrongType}
		}
		user.FullName = fullName
	}
	if raw, ok := document["last_login"]; ok && raw != nil {
		value, ok := raw.(string)
		if !ok {
			return nil, &errMalformedRecord{kind: "user", field: "last_login", cause: errWrongType}
		}
		lastLogin, err := decodeTime(value)
		if err != nil {
			return nil, &errMalformedRecord{kind: "user", field: "last_login", cause: err}
		}
		user.LastLogin = &lastLogin
	}
	if raw, ok := document["preferences"]; ok && raw != nil {
		preferences, ok := toStringMap(raw)
		if !ok {
			return nil, &errMalformedRecord{kind: "user", field: "preferences", cause: errWrongType}
		}
		user.Preferences = preferences
	}
	return user, nil
}

// encodeSession renders a session entity into its canonical stored document.
// See encodeUser for the includeKey contract.
func encodeSession(session *Session, includeKey bool, now time.Time) map[string]any {
	document := map[string]any{
		"username":      session.Username,
		"created_at":    encodeTime(session.CreatedAt),
		"expires_at":    encodeTime(session.ExpiresAt),
		"last_activity": encodeTime(session.LastActivity),
	}
	document[fieldRecordCreatedAt] = encodeTime(now)
	document[fieldRecordUpdatedAt] = encodeTime(now)
	if includeKey {
		document["token"] = session.Token
	}
	return document
}

// decodeSession reconstructs a session entity from its stored document.
func decodeSession(document map[string]any, fallbackKey string) (*Session, error) {
	token := fallbackKey
	if inline, ok := document["token"].(string); ok && inline != "" {
		token = inline
	}
	if token == "" {
		return nil, &errMalformedRecord{kind: "session", field: "token", cause: errMissingField}
	}

	username, err := documentString(document, "username")
	if err != nil {
		return nil, &errMalformedRecord{kind: "session", field: "username", cause: err}
	}
	createdAt, err := documentTime(document, "created_at")
	if err != nil {
		return nil, &errMalformedRecord{kind: "session", field: "created_at", cause: err}
	}
	expiresAt, err := documentTime(document, "expires_at")
	if err != nil {
		return nil, &errMalformedRecord{kind: "session", field: "expires_at", cause: err}
	}
	lastActivity, err := documentTime(document, "last_activity")
	if err != nil {
		return nil, &errMalformedRecord{kind: "session", field: "last_activity", cause: err}
	}

	return &Session{
		Token:        token,
		Username:     username,
		CreatedAt:    createdAt,
		ExpiresAt:    expiresAt,
		LastActivity: lastActivity,
	}, nil
}

// # Document Helpers

var (
	errMissingField = fmt.Errorf("missing")
	errWrongType    = fmt.Errorf("unexpected type")
)

func documentString(document map[string]any, key string) (string, error) {
	raw, ok := document[key]
	if !ok || raw == nil {
		return "", errMissingField
	}
	value, ok := raw.(string)
	if !ok {
		return "", errWrongType
	}
	return value, nil
}

func documentBool(document map[string]any, key string) (bool, error) {
	raw, ok := document[key]
	if !ok || raw == nil {
		return false, errMissingField
	}
	value, ok := raw.(bool)
	if !ok {
		return false, errWrongType
	}
	return value, nil
}

func documentTime(document map[string]any, key string) (time.Time, error) {
	value, err := documentString(document, key)
	if err != nil {
		return time.Time{}, err
	}
	return decodeTime(value)
}

// toStringMap normalizes the nested-document representations produced by the
// two backends into a plain map. encoding/json yields map[string]any; the BSON
// decoder yields bson.M at the top level but ordered bson.D for embedded
// documents, so both forms must be accepted.
func toStringMap(raw any) (map[string]any, bool) {
	switch typed := raw.(type) {
	case map[string]any:
		return typed, true
	case bson.M:
		return map[string]any(typed), true
	case bson.D:
		converted := make(map[string]any, len(typed))
		for _, element := range typed {
			converted[element.Key] = element.Value
		}
		return converted, true
	default:
		return nil, false
	}
}
