// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/tradegate/internal/platform/apperr"
	"github.com/taibuivan/tradegate/internal/platform/config"
	"github.com/taibuivan/tradegate/internal/platform/mongodb"
)

// # Backend Selector

// Selector is the storage facade handed to the service layer. It routes every
// operation to the primary backend and, when the database is primary, mirrors
// each successful write into the file store.
//
// The primary is chosen once at startup and never changes for the process
// lifetime. Mirror failures are logged and swallowed: the mirror is a
// best-effort replica, never a source of operation failure. All reads come
// from the primary, so a stale mirror cannot leak into responses.
type Selector struct {
	primary Store
	mirror  Store // nil when the file store is primary
	log     *slog.Logger
}

/*
SelectBackend probes the database once and fixes the storage topology.

Selection rules:
  - database reachable: database is primary, file store mirrors every write.
  - database unreachable: file store serves alone.
  - file store also unusable: startup fails.

Parameters:
  - ctx: bounds the connection probe.
  - cfg: application configuration (connection URI, file paths, collections).
  - log: structured logger.

Returns:
  - *Selector: the fixed storage facade.
  - error: when no backend can serve requests.
*/
func SelectBackend(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Selector, error) {
	fileStore, fileErr := NewFileStore(cfg.UsersFilePath(), cfg.SessionsFilePath(), log)

	client, err := mongodb.NewClient(ctx, cfg.BuildMongoURI(), log)
	if err != nil {
		log.Warn("database unreachable, falling back to file storage", "error", err)
		if fileErr != nil {
			log.Error("file storage also unavailable", "error", fileErr)
			return nil, ErrBackendUnavailable
		}
		return NewSelector(fileStore, nil, log), nil
	}

	mongoStore := NewMongoStore(ctx, client,
		cfg.MongoDatabase, cfg.UsersCollection, cfg.SessionsCollection, log)
	if fileErr != nil {
		log.Warn("file mirror unavailable, database serves alone", "error", fileErr)
		return NewSelector(mongoStore, nil, log), nil
	}
	return NewSelector(mongoStore, fileStore, log), nil
}

// NewSelector builds a selector over an already-chosen topology. The mirror
// may be nil when no second backend is available.
func NewSelector(primary, mirror Store, log *slog.Logger) *Selector {
	selector := &Selector{
		primary: primary,
		mirror:  mirror,
		log:     log.With("primary", primary.Name()),
	}
	if mirror != nil {
		selector.log.Info("storage selected", "mirror", mirror.Name())
	} else {
		selector.log.Info("storage selected", "mirror", "none")
	}
	return selector
}

// Name reports the active primary backend.
func (selector *Selector) Name() string { return selector.primary.Name() }

// Mirrored reports whether writes are replicated to a second backend.
func (selector *Selector) Mirrored() bool { return selector.mirror != nil }

// Ping delegates to the primary backend.
func (selector *Selector) Ping(ctx context.Context) error {
	return selector.primary.Ping(ctx)
}

// # User Records

func (selector *Selector) CreateUser(ctx context.Context, user *User) error {
	if err := selector.primary.CreateUser(ctx, user); err != nil {
		return err
	}
	selector.mirrorWrite(func() error {
		if err := selector.mirror.CreateUser(ctx, user); err != nil {
			if apperr.HasCode(err, apperr.CodeConflict) {
				return selector.mirror.UpdateUser(ctx, user)
			}
			return err
		}
		return nil
	})
	return nil
}

func (selector *Selector) GetUser(ctx context.Context, username string) (*User, error) {
	return selector.primary.GetUser(ctx, username)
}

func (selector *Selector) UpdateUser(ctx context.Context, user *User) error {
	if err := selector.primary.UpdateUser(ctx, user); err != nil {
		return err
	}
	selector.mirrorWrite(func() error {
		if err := selector.mirror.UpdateUser(ctx, user); err != nil {
			if apperr.HasCode(err, apperr.CodeNotFound) {
				return selector.mirror.CreateUser(ctx, user)
			}
			return err
		}
		return nil
	})
	return nil
}

func (selector *Selector) ListUsers(ctx context.Context) ([]*User, error) {
	return selector.primary.ListUsers(ctx)
}

// # Session Records

func (selector *Selector) CreateSession(ctx context.Context, session *Session) error {
	if err := selector.primary.CreateSession(ctx, session); err != nil {
		return err
	}
	selector.mirrorWrite(func() error {
		if err := selector.mirror.CreateSession(ctx, session); err != nil {
			if apperr.HasCode(err, apperr.CodeConflict) {
				return selector.mirror.UpdateSession(ctx, session)
			}
			return err
		}
		return nil
	})
	return nil
}

func (selector *Selector) GetSession(ctx context.Context, token string) (*Session, error) {
	return selector.primary.GetSession(ctx, token)
}

func (selector *Selector) UpdateSession(ctx context.Context, session *Session) error {
	if err := selector.primary.UpdateSession(ctx, session); err != nil {
		return err
	}
	selector.mirrorWrite(func() error {
		if err := selector.mirror.UpdateSession(ctx, session); err != nil {
			if apperr.HasCode(err, apperr.CodeNotFound) {
				return selector.mirror.CreateSession(ctx, session)
			}
			return err
		}
		return nil
	})
	return nil
}

func (selector *Selector) DeleteSession(ctx context.Context, token string) error {
	if err := selector.primary.DeleteSession(ctx, token); err != nil {
		return err
	}
	selector.mirrorWrite(func() error {
		return selector.mirror.DeleteSession(ctx, token)
	})
	return nil
}

func (selector *Selector) DeleteUserSessions(ctx context.Context, username string) (int, error) {
	deleted, err := selector.primary.DeleteUserSessions(ctx, username)
	if err != nil {
		return 0, err
	}
	selector.mirrorWrite(func() error {
		_, err := selector.mirror.DeleteUserSessions(ctx, username)
		return err
	})
	return deleted, nil
}

func (selector *Selector) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	deleted, err := selector.primary.DeleteExpiredSessions(ctx, now)
	if err != nil {
		return 0, err
	}
	selector.mirrorWrite(func() error {
		_, err := selector.mirror.DeleteExpiredSessions(ctx, now)
		return err
	})
	return deleted, nil
}

func (selector *Selector) ListSessions(ctx context.Context) ([]*Session, error) {
	return selector.primary.ListSessions(ctx)
}

// mirrorWrite runs a replication step against the mirror, if one exists.
// Failures degrade the replica, never the request.
func (selector *Selector) mirrorWrite(replicate func() error) {
	if selector.mirror == nil {
		return
	}
	if err := replicate(); err != nil {
		selector.log.Warn("mirror write failed", "mirror", selector.mirror.Name(), "error", err)
	}
}
