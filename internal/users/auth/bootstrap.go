// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/taibuivan/tradegate/internal/platform/apperr"
	"github.com/taibuivan/tradegate/internal/platform/sec"
)

// # Bootstrap

// BootstrapAdmin carries the default administrator identity seeded at startup.
type BootstrapAdmin struct {
	Username string
	Email    string
	Password string
}

/*
Bootstrap seeds the default administrator account.

The operation is idempotent: when the account already exists it is left
exactly as found — in particular a changed password or role on the existing
account is never reset. A concurrent create by another instance is treated
as success.

Returns:
  - error: only when the account can neither be found nor created.
*/
func (service *Service) Bootstrap(ctx context.Context, admin BootstrapAdmin) error {
	if _, err := service.store.GetUser(ctx, admin.Username); err == nil {
		service.log.Debug("admin account already present", "username", admin.Username)
		return nil
	} else if !apperr.HasCode(err, apperr.CodeNotFound) {
		return err
	}

	user := &User{
		Username:     admin.Username,
		Email:        admin.Email,
		PasswordHash: sec.HashPassword(admin.Password),
		FullName:     "Administrator",
		Role:         sec.RoleAdmin,
		IsActive:     true,
		Preferences:  DefaultPreferences(),
		CreatedAt:    service.now(),
	}
	if err := service.store.CreateUser(ctx, user); err != nil {
		if apperr.HasCode(err, apperr.CodeConflict) {
			return nil // Another instance won the race.
		}
		return err
	}
	service.log.Info("admin account created", "username", admin.Username)
	return nil
}

// # Expiry Sweep

/*
RunExpirySweep periodically purges expired sessions until ctx is cancelled.

Lazy purging on the validation path already keeps reads correct; the sweep
exists so sessions that are never validated again do not accumulate forever.
Sweep failures are logged and retried on the next tick.
*/
func (service *Service) RunExpirySweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	service.log.Info("expiry sweep started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			service.log.Info("expiry sweep stopped")
			return
		case <-ticker.C:
			purged, err := service.store.DeleteExpiredSessions(ctx, service.now())
			if err != nil {
				service.log.Warn("expiry sweep failed", "error", err)
				continue
			}
			if purged > 0 {
				service.log.Info("expired sessions purged", "count", purged)
			}
		}
	}
}
