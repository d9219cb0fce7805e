// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Default token lifetimes.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenConfig holds the signing secrets and lifetimes for session
// tokens. It is injected at construction and read-only afterwards.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Claims is the JWT payload for access and refresh tokens. Role is only
// present on access tokens.
type Claims struct {
	AccountID string `json:"account_id"`
	Role      Role   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec creates and verifies signed session tokens. It is stateless;
// the caller persists refresh token fingerprints.
type TokenCodec struct {
	cfg TokenConfig
}

// NewTokenCodec creates a TokenCodec. Both secrets are required and must
// differ, so a refresh token can never pass access verification.
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("access secret is required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("refresh secret is required")
	}
	if subtle.ConstantTimeCompare(cfg.AccessSecret, cfg.RefreshSecret) == 1 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}
	return &TokenCodec{cfg: cfg}, nil
}

// IssueAccessToken creates a short-lived signed token carrying the
// account ID and role.
func (c *TokenCodec) IssueAccessToken(accountID ulid.ULID, role Role) (string, error) {
	return c.sign(accountID, role, c.cfg.AccessSecret, c.cfg.AccessTTL)
}

// IssueRefreshToken creates a longer-lived signed token carrying only
// the account ID. The caller persists its fingerprint.
func (c *TokenCodec) IssueRefreshToken(accountID ulid.ULID) (string, error) {
	return c.sign(accountID, "", c.cfg.RefreshSecret, c.cfg.RefreshTTL)
}

// VerifyAccessToken verifies signature and expiry of an access token.
func (c *TokenCodec) VerifyAccessToken(token string) (*Claims, error) {
	return c.verify(token, c.cfg.AccessSecret)
}

// VerifyRefreshToken verifies signature and expiry of a refresh token.
func (c *TokenCodec) VerifyRefreshToken(token string) (*Claims, error) {
	return c.verify(token, c.cfg.RefreshSecret)
}

func (c *TokenCodec) sign(accountID ulid.ULID, role Role, secret []byte, ttl time.Duration) (string, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return "", oops.Code("TOKEN_ISSUE_FAILED").Errorf("account ID cannot be zero")
	}

	now := time.Now()
	claims := Claims{
		AccountID: accountID.String(),
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.cfg.Issuer,
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", oops.Code("TOKEN_ISSUE_FAILED").Wrap(err)
	}
	return signed, nil
}

func (c *TokenCodec) verify(token string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code(CodeExpiredToken).Errorf("token has expired")
		}
		return nil, oops.Code(CodeInvalidToken).Wrapf(err, "token verification failed")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.AccountID == "" {
		return nil, oops.Code(CodeInvalidToken).Errorf("malformed token payload")
	}
	if _, err := ulid.Parse(claims.AccountID); err != nil {
		return nil, oops.Code(CodeInvalidToken).Errorf("malformed account ID in token")
	}
	return claims, nil
}

// Fingerprint computes the SHA-256 fingerprint of a signed token. The
// fingerprint, not the token, is what the store persists.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
