// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateSecureToken returns a URL-safe random token with byteLength bytes
// of entropy.
//
// # Usage
//
// Session tokens are opaque bearer credentials: they are never derived from
// user data and carry no embedded claims. 32 bytes (256 bits) keeps them
// unguessable even against an offline adversary.
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)

	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read entropy: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buffer), nil
}
