// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Single-use token configuration.
const (
	SingleUseTokenBytes = 32 // 32 bytes = 64 hex chars

	// VerificationTokenTTL bounds email verification tokens.
	VerificationTokenTTL = 20 * time.Minute

	// ResetTokenTTL bounds password reset tokens.
	ResetTokenTTL = 20 * time.Minute
)

// SingleUseToken is a freshly issued verification or reset token. The
// plaintext is delivered to the user exactly once and never persisted;
// only the hash is stored.
type SingleUseToken struct {
	Plaintext string
	Hash      string
	ExpiresAt time.Time
}

// GenerateSingleUseToken creates a cryptographically random token, its
// SHA-256 hash, and an expiry the given duration from now.
func GenerateSingleUseToken(ttl time.Duration) (SingleUseToken, error) {
	if ttl <= 0 {
		return SingleUseToken{}, oops.Code("TOKEN_ISSUE_FAILED").Errorf("token lifetime must be positive")
	}

	raw := make([]byte, SingleUseTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return SingleUseToken{}, oops.Code("TOKEN_ISSUE_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}

	plaintext := hex.EncodeToString(raw)
	return SingleUseToken{
		Plaintext: plaintext,
		Hash:      HashSingleUseToken(plaintext),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// HashSingleUseToken computes the deterministic SHA-256 hash of a
// plaintext token, used to look up a presented token without ever
// storing the plaintext.
func HashSingleUseToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// MatchSingleUseToken checks a presented plaintext token against a
// stored hash in constant time.
func MatchSingleUseToken(plaintext, hash string) bool {
	if plaintext == "" || hash == "" {
		return false
	}
	computed := HashSingleUseToken(plaintext)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// singleUseTokenExpired reports whether a token is no longer redeemable.
// A token is valid strictly before its expiry; at the expiry instant it
// is already expired. A nil expiry means no token was ever issued.
func singleUseTokenExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt == nil || !now.Before(*expiresAt)
}
