// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/helmgate/helmgate/pkg/errutil"
)

// MinPasswordLength is the minimum accepted password length at
// registration and password change.
const MinPasswordLength = 8

// TokenPair is a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service provides registration, login, logout, and refresh-token
// rotation. At most one refresh token is valid per account at a time:
// login overwrites the stored fingerprint, refresh rotates it with a
// compare-and-swap, logout clears it.
type Service struct {
	accounts     AccountRepository
	hasher       PasswordHasher
	codec        *TokenCodec
	verification *VerificationService
	logger       *slog.Logger
}

// NewService creates a Service. All dependencies are required.
func NewService(accounts AccountRepository, hasher PasswordHasher, codec *TokenCodec, verification *VerificationService) (*Service, error) {
	return NewServiceWithLogger(accounts, hasher, codec, verification, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(accounts AccountRepository, hasher PasswordHasher, codec *TokenCodec, verification *VerificationService, logger *slog.Logger) (*Service, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if codec == nil {
		return nil, oops.Errorf("token codec is required")
	}
	if verification == nil {
		return nil, oops.Errorf("verification service is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		accounts:     accounts,
		hasher:       hasher,
		codec:        codec,
		verification: verification,
		logger:       logger,
	}, nil
}

// dummyPasswordHash is verified against when no account matches the
// presented email, so response time does not reveal whether the account
// exists. It is a fake hash that can never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// invalidCredentialsMsg is shared by the unknown-account and
// wrong-password paths so user-facing text cannot distinguish them.
const invalidCredentialsMsg = "invalid email or password"

// Register creates a new account with a hashed password and triggers
// issuance of an email verification token. Returns the sanitized account
// view. A failed verification delivery is logged, never propagated:
// registration must not fail because an email could not be sent.
func (s *Service) Register(ctx context.Context, email, username, password string, role Role) (View, error) {
	if strings.TrimSpace(password) == "" {
		return View{}, oops.Code("ACCOUNT_INVALID_PASSWORD").Errorf("password is required")
	}
	if len(password) < MinPasswordLength {
		return View{}, oops.Code("ACCOUNT_INVALID_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return View{}, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(email, username, hash, role)
	if err != nil {
		return View{}, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return View{}, oops.Code(CodeConflict).
				Wrapf(err, "email or username already registered")
		}
		return View{}, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	// Verification issuance is decoupled from registration: the account
	// exists either way and the token can be re-issued on demand.
	if _, err := s.verification.IssueEmailVerification(ctx, account.ID); err != nil {
		errutil.LogError(ctx, s.logger, "issue verification token after registration", err)
	}

	return account.View(), nil
}

// Login verifies credentials and starts a session. On success it issues
// a fresh access/refresh pair and overwrites any previously stored
// refresh fingerprint, so a second login supersedes the first session.
// Uses constant-time operations to prevent timing-based enumeration.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, View, error) {
	account, lookupErr := s.accounts.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	exists := false
	switch {
	case lookupErr == nil:
		targetHash = account.PasswordHash
		exists = true
	case errors.Is(lookupErr, ErrNotFound):
		// Keep going with the dummy hash to hold response time constant.
	default:
		return TokenPair{}, View{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get account by email").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !exists {
			return TokenPair{}, View{}, oops.Code(CodeNotFound).Errorf("%s", invalidCredentialsMsg)
		}
		return TokenPair{}, View{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}
	if !exists {
		return TokenPair{}, View{}, oops.Code(CodeNotFound).Errorf("%s", invalidCredentialsMsg)
	}
	if !valid {
		return TokenPair{}, View{}, oops.Code(CodeInvalidCredentials).Errorf("%s", invalidCredentialsMsg)
	}

	pair, fingerprint, err := s.issuePair(account.ID, account.Role)
	if err != nil {
		return TokenPair{}, View{}, err
	}

	// Token issuance succeeded; persisting the fingerprint is the single
	// write of this flow. If it fails nothing partial is left behind.
	if err := s.accounts.SetRefreshFingerprint(ctx, account.ID, fingerprint); err != nil {
		return TokenPair{}, View{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "persist refresh fingerprint").
			Wrap(err)
	}

	return pair, account.View(), nil
}

// Logout clears the stored refresh fingerprint. Calling it for an
// account with no active session is not an error.
func (s *Service) Logout(ctx context.Context, accountID ulid.ULID) error {
	if err := s.accounts.ClearRefreshFingerprint(ctx, accountID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeNotFound).
				With("account_id", accountID.String()).
				Wrap(err)
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "clear refresh fingerprint").
			Wrap(err)
	}
	return nil
}

// Refresh exchanges a valid refresh token for a brand-new access/refresh
// pair and rotates the stored fingerprint atomically. A stale token, even
// with a valid signature, is rejected once superseded — this stops a
// stolen refresh token from being replayed after legitimate rotation.
func (s *Service) Refresh(ctx context.Context, presented string) (TokenPair, error) {
	if presented == "" {
		return TokenPair{}, oops.Code(CodeUnauthorized).Errorf("refresh token is required")
	}

	claims, err := s.codec.VerifyRefreshToken(presented)
	if err != nil {
		return TokenPair{}, err
	}
	accountID, err := ulid.Parse(claims.AccountID)
	if err != nil {
		return TokenPair{}, oops.Code(CodeInvalidToken).Errorf("malformed account ID in token")
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, oops.Code(CodeUnauthorized).Wrapf(err, "unknown account")
		}
		return TokenPair{}, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get account by id").
			Wrap(err)
	}

	// A logged-out account has no fingerprint on file. Reject before
	// issuing anything rather than relying on the CAS below to miss.
	if !account.HasActiveSession() {
		return TokenPair{}, oops.Code(CodeExpiredToken).Errorf("no active session")
	}

	pair, newFingerprint, err := s.issuePair(account.ID, account.Role)
	if err != nil {
		return TokenPair{}, err
	}

	// Compare-and-swap on the stored fingerprint is the serialization
	// point for concurrent refreshes: exactly one presented token wins.
	err = s.accounts.RotateRefreshFingerprint(ctx, account.ID, Fingerprint(presented), newFingerprint)
	if err != nil {
		if errors.Is(err, ErrFingerprintMismatch) {
			return TokenPair{}, oops.Code(CodeExpiredToken).
				Wrapf(err, "refresh token superseded")
		}
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, oops.Code(CodeUnauthorized).Wrapf(err, "unknown account")
		}
		return TokenPair{}, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "rotate refresh fingerprint").
			Wrap(err)
	}

	return pair, nil
}

// CurrentAccount returns the sanitized view for an authenticated account.
func (s *Service) CurrentAccount(ctx context.Context, accountID ulid.ULID) (View, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return View{}, oops.Code(CodeNotFound).
				With("account_id", accountID.String()).
				Wrap(err)
		}
		return View{}, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by id").
			Wrap(err)
	}
	return account.View(), nil
}

// issuePair mints an access/refresh pair and the fingerprint of the new
// refresh token. Nothing is persisted here.
func (s *Service) issuePair(accountID ulid.ULID, role Role) (TokenPair, string, error) {
	access, err := s.codec.IssueAccessToken(accountID, role)
	if err != nil {
		return TokenPair{}, "", oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "issue access token").
			Wrap(err)
	}
	refresh, err := s.codec.IssueRefreshToken(accountID)
	if err != nil {
		return TokenPair{}, "", oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "issue refresh token").
			Wrap(err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, Fingerprint(refresh), nil
}
