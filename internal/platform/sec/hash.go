// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives for the identity domain.
//
// # Architecture
//
// This package isolates security-sensitive code (password digests, session
// token generation) from the domain logic. It holds no state and performs
// no I/O.
package sec

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashPassword derives the deterministic SHA-256 hex digest of a password.
//
// The digest is intentionally unsalted: the stored corpus of credentials was
// produced by this exact transformation, and changing it would invalidate
// every existing password hash across both backends. Migrating to a salted
// KDF is tracked as a compatibility-breaking change, not done silently here.
func HashPassword(plainTextPassword string) string {
	sum := sha256.Sum256([]byte(plainTextPassword))
	return hex.EncodeToString(sum[:])
}

// CheckPasswordHash compares a plain-text password with its stored digest.
//
// The comparison is constant-time so that digest prefixes cannot be probed
// through response timing.
func CheckPasswordHash(plainTextPassword, existingDigest string) bool {
	computed := HashPassword(plainTextPassword)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(existingDigest)) == 1
}
