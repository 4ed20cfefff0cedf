// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Session Policy

const (
	// SessionTTL is how long an issued session remains valid.
	SessionTTL = 24 * time.Hour

	// SessionTokenLength is the number of random bytes behind a session token.
	SessionTokenLength = 32

	// ExpirySweepInterval is how often the background sweeper purges
	// expired sessions from the active backend.
	ExpirySweepInterval = 1 * time.Hour
)

// # Credential Policy

const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 6
	MaxFullNameLength = 100
)

// # Defaults

// DefaultPreferences returns the preference set stamped onto new accounts.
func DefaultPreferences() map[string]any {
	return map[string]any{
		"theme":          "dark",
		"default_market": "crypto",
		"auto_refresh":   true,
	}
}
