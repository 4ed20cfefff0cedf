// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// # File Store

// FileStore persists users and sessions as two JSON documents on local disk.
// It serves as the fallback backend when the database is unreachable and as
// the best-effort mirror when the database is primary.
//
// Each file holds a single JSON object keyed by the record identity
// (username for users, token for sessions). Every mutation rewrites the whole
// file through an atomic temp-file-and-rename, so readers never observe a
// partially written document.
type FileStore struct {
	usersPath    string
	sessionsPath string

	// Separate locks per collection: user traffic never blocks on the
	// high-churn session file.
	usersMu    sync.Mutex
	sessionsMu sync.Mutex

	log *slog.Logger
}

/*
NewFileStore initializes the flat-file backend.

The data directory is created if missing and both files are seeded with an
empty JSON object so that first reads succeed.

Parameters:
  - usersPath: path of the users JSON file.
  - sessionsPath: path of the sessions JSON file.
  - log: structured logger for store diagnostics.

Returns:
  - *FileStore: the ready store.
  - error: when the directory or seed files cannot be created.
*/
func NewFileStore(usersPath, sessionsPath string, log *slog.Logger) (*FileStore, error) {
	for _, path := range []string{usersPath, sessionsPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := writeFileAtomic(path, []byte("{}\n")); err != nil {
				return nil, fmt.Errorf("seed %s: %w", filepath.Base(path), err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("stat %s: %w", filepath.Base(path), err)
		}
	}
	return &FileStore{
		usersPath:    usersPath,
		sessionsPath: sessionsPath,
		log:          log.With("store", "file"),
	}, nil
}

// Name identifies the backend in logs and health output.
func (store *FileStore) Name() string { return "file" }

// Ping verifies both backing files are still accessible.
func (store *FileStore) Ping(_ context.Context) error {
	for _, path := range []string{store.usersPath, store.sessionsPath} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}
	return nil
}

// # User Records

func (store *FileStore) CreateUser(_ context.Context, user *User) error {
	store.usersMu.Lock()
	defer store.usersMu.Unlock()

	documents, err := store.loadCollection(store.usersPath)
	if err != nil {
		return err
	}
	if _, exists := documents[user.Username]; exists {
		return errDuplicateUser()
	}
	for _, document := range documents {
		if email, _ := document["email"].(string); email == user.Email {
			return errDuplicateUser()
		}
	}
	documents[user.Username] = encodeUser(user, false, time.Now())
	return store.saveCollection(store.usersPath, documents)
}

func (store *FileStore) GetUser(_ context.Context, username string) (*User, error) {
	store.usersMu.Lock()
	defer store.usersMu.Unlock()

	documents, err := store.loadCollection(store.usersPath)
	if err != nil {
		return nil, err
	}
	document, exists := documents[username]
	if !exists {
		return nil, errUserNotFound()
	}
	user, err := decodeUser(document, username)
	if err != nil {
		// Undecodable records are surfaced as absent; the raw document
		// stays on disk for operator inspection.
		store.log.Error("skipping malformed user record", "username", username, "error", err)
		return nil, errUserNotFound()
	}
	return user, nil
}

func (store *FileStore) UpdateUser(_ context.Context, user *User) error {
	store.usersMu.Lock()
	defer store.usersMu.Unlock()

	documents, err := store.loadCollection(store.usersPath)
	if err != nil {
		return err
	}
	previous, exists := documents[user.Username]
	if !exists {
		return errUserNotFound()
	}
	for username, document := range documents {
		if username == user.Username {
			continue
		}
		if email, _ := document["email"].(string); email == user.Email {
			return errDuplicateUser()
		}
	}
	document := encodeUser(user, false, time.Now())
	// Creation bookkeeping survives updates.
	if createdAt, ok := previous[fieldRecordCreatedAt]; ok {
		document[fieldRecordCreatedAt] = createdAt
	}
	documents[user.Username] = document
	return store.saveCollection(store.usersPath, documents)
}

func (store *FileStore) ListUsers(_ context.Context) ([]*User, error) {
	store.usersMu.Lock()
	defer store.usersMu.Unlock()

	documents, err := store.loadCollection(store.usersPath)
	if err != nil {
		return nil, err
	}
	users := make([]*User, 0, len(documents))
	for username, document := range documents {
		user, err := decodeUser(document, username)
		if err != nil {
			store.log.Error("skipping malformed user record", "username", username, "error", err)
			continue
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// # Session Records

func (store *FileStore) CreateSession(_ context.Context, session *Session) error {
	store.sessionsMu.Lock()
	defer store.sessionsMu.Unlock()

	documents, err := store.loadCollection(store.sessionsPath)
	if err != nil {
		return err
	}
	if _, exists := documents[session.Token]; exists {
		return errDuplicateSession()
	}
	documents[session.Token] = encodeSession(session, false, time.Now())
	return store.saveCollection(store.sessionsPath, documents)
}

func (store *FileStore) GetSession(_ context.Context, token string) (*Session, error) {
	store.sessionsMu.Lock()
	defer store.sessionsMu.Unlock()

	documents, err := store.loadCollection(store.sessionsPath)
	if err != nil {
		return nil, err
	}
	document, exists := documents[token]
	if !exists {
		return nil, errSessionNotFound()
	}
	session, err := decodeSession(document, token)
	if err != nil {
		store.log.Error("skipping malformed session record", "error", err)
		return nil, errSessionNotFound()
	}
	return session, nil
}

func (store *FileStore) UpdateSession(_ context.Context, session *Session) error {
	store.sessionsMu.Lock()
	defer store.sessionsMu.Unlock()

	documents, err := store.loadCollection(store.sessionsPath)
	if err != nil {
		return err
	}
	previous, exists := documents[session.Token]
	if !exists {
		return errSessionNotFound()
	}
	document := encodeSession(session, false, time.Now())
	if createdAt, ok := previous[fieldRecordCreatedAt]; ok {
		document[fieldRecordCreatedAt] = createdAt
	}
	documents[session.Token] = document
	return store.saveCollection(store.sessionsPath, documents)
}

func (store *FileStore) DeleteSession(_ context.Context, token string) error {
	store.sessionsMu.Lock()
	defer store.sessionsMu.Unlock()

	documents, err := store.loadCollection(store.sessionsPath)
	if err != nil {
		return err
	}
	if _, exists := documents[token]; !exists {
		return nil // Idempotent.
	}
	delete(documents, token)
	return store.saveCollection(store.sessionsPath, documents)
}

func (store *FileStore) DeleteUserSessions(_ context.Context, username string) (int, error) {
	store.sessionsMu.Lock()
	defer store.sessionsMu.Unlock()

	documents, err := store.loadCollection(store.sessionsPath)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for token, document := range documents {
		if owner, _ := document["username"].(string); owner == username {
			delete(documents, token)
			deleted++
		}
	}
	if deleted == 0 {
		return 0, nil
	}
	return deleted, store.saveCollection(store.sessionsPath, documents)
}

func (store *FileStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	store.sessionsMu.Lock()
	defer store.sessionsMu.Unlock()

	documents, err := store.loadCollection(store.sessionsPath)
	if err != nil {
		return 0, err
	}
	cutoff := encodeTime(now)
	deleted := 0
	for token, document := range documents {
		expiresAt, _ := document["expires_at"].(string)
		// Fixed-width UTC timestamps compare lexicographically.
		if expiresAt <= cutoff {
			delete(documents, token)
			deleted++
		}
	}
	if deleted == 0 {
		return 0, nil
	}
	return deleted, store.saveCollection(store.sessionsPath, documents)
}

func (store *FileStore) ListSessions(_ context.Context) ([]*Session, error) {
	store.sessionsMu.Lock()
	defer store.sessionsMu.Unlock()

	documents, err := store.loadCollection(store.sessionsPath)
	if err != nil {
		return nil, err
	}
	sessions := make([]*Session, 0, len(documents))
	for token, document := range documents {
		session, err := decodeSession(document, token)
		if err != nil {
			store.log.Error("skipping malformed session record", "error", err)
			continue
		}
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ExpiresAt.Before(sessions[j].ExpiresAt)
	})
	return sessions, nil
}

// # File Plumbing

func (store *FileStore) loadCollection(path string) (map[string]map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrBackendUnavailable, filepath.Base(path), err)
	}
	documents := make(map[string]map[string]any)
	if err := json.Unmarshal(raw, &documents); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrBackendUnavailable, filepath.Base(path), err)
	}
	return documents, nil
}

func (store *FileStore) saveCollection(path string, documents map[string]map[string]any) error {
	raw, err := json.MarshalIndent(documents, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := writeFileAtomic(path, append(raw, '\n')); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrBackendUnavailable, filepath.Base(path), err)
	}
	return nil
}

// writeFileAtomic writes data to a sibling temp file, fsyncs it and renames it
// over the destination, so a crash mid-write never leaves a torn file.
func writeFileAtomic(path string, data []byte) error {
	directory := filepath.Dir(path)
	temp, err := os.CreateTemp(directory, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tempPath := temp.Name()
	defer os.Remove(tempPath)

	if _, err := temp.Write(data); err != nil {
		temp.Close()
		return err
	}
	if err := temp.Sync(); err != nil {
		temp.Close()
		return err
	}
	if err := temp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tempPath, 0o644); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}
