// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/helmgate/helmgate/pkg/errutil"
)

// VerificationService issues and redeems single-use, time-bounded tokens
// for email confirmation and password recovery. Issuing a new token
// supersedes any outstanding one of the same kind; redeeming a token
// clears the stored hash, so a second redemption fails.
type VerificationService struct {
	accounts AccountRepository
	hasher   PasswordHasher
	notifier Notifier
	logger   *slog.Logger
}

// NewVerificationService creates a VerificationService. All dependencies
// are required.
func NewVerificationService(accounts AccountRepository, hasher PasswordHasher, notifier Notifier) (*VerificationService, error) {
	return NewVerificationServiceWithLogger(accounts, hasher, notifier, slog.Default())
}

// NewVerificationServiceWithLogger creates a VerificationService with an
// explicit logger.
func NewVerificationServiceWithLogger(accounts AccountRepository, hasher PasswordHasher, notifier Notifier, logger *slog.Logger) (*VerificationService, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &VerificationService{
		accounts: accounts,
		hasher:   hasher,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// IssueEmailVerification generates a verification token for an
// unverified account, persists its hash and expiry, hands the plaintext
// to the notifier, and returns it. Fails with a conflict when the email
// is already verified.
func (s *VerificationService) IssueEmailVerification(ctx context.Context, accountID ulid.ULID) (string, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code(CodeNotFound).
				With("account_id", accountID.String()).
				Wrap(err)
		}
		return "", oops.Code("VERIFY_ISSUE_FAILED").
			With("operation", "get account by id").
			Wrap(err)
	}
	if account.EmailVerified {
		return "", oops.Code(CodeAlreadyVerified).Errorf("email is already verified")
	}

	token, err := GenerateSingleUseToken(VerificationTokenTTL)
	if err != nil {
		return "", oops.Code("VERIFY_ISSUE_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	// Overwrites any outstanding verification token.
	if err := s.accounts.SetVerificationToken(ctx, account.ID, token.Hash, token.ExpiresAt); err != nil {
		return "", oops.Code("VERIFY_ISSUE_FAILED").
			With("operation", "persist token hash").
			Wrap(err)
	}

	s.deliver(ctx, account.Email, NotifyVerification, token.Plaintext)
	return token.Plaintext, nil
}

// RedeemEmailVerification marks the owning account verified if the
// presented token matches an outstanding hash and has not expired. The
// token fields are cleared on success, so redeeming twice fails.
func (s *VerificationService) RedeemEmailVerification(ctx context.Context, plaintext string) error {
	account, err := s.lookupByToken(ctx, plaintext, tokenLookup{
		get:    s.accounts.GetByVerificationTokenHash,
		hash:   func(a *Account) string { return a.VerificationTokenHash },
		expiry: func(a *Account) *time.Time { return a.VerificationExpiresAt },
	})
	if err != nil {
		return err
	}

	if err := s.accounts.MarkEmailVerified(ctx, account.ID); err != nil {
		return oops.Code("VERIFY_REDEEM_FAILED").
			With("operation", "mark email verified").
			Wrap(err)
	}
	return nil
}

// IssuePasswordReset generates a reset token for the account matching
// the email. An unknown email returns success with an empty token so the
// response cannot be used to enumerate registered addresses.
func (s *VerificationService) IssuePasswordReset(ctx context.Context, email string) (string, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	token, err := GenerateSingleUseToken(ResetTokenTTL)
	if err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	// Overwrites any outstanding reset token.
	if err := s.accounts.SetResetToken(ctx, account.ID, token.Hash, token.ExpiresAt); err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "persist token hash").
			Wrap(err)
	}

	s.deliver(ctx, account.Email, NotifyPasswordReset, token.Plaintext)
	return token.Plaintext, nil
}

// RedeemPasswordReset stores a new password for the account holding the
// presented reset token. On success the reset fields and the refresh
// fingerprint are cleared in one write: sessions issued under the old
// credential stop refreshing, forcing a re-login.
func (s *VerificationService) RedeemPasswordReset(ctx context.Context, plaintext, newPassword string) error {
	if err := validateNewPassword(newPassword); err != nil {
		return err
	}

	account, err := s.lookupByToken(ctx, plaintext, tokenLookup{
		get:    s.accounts.GetByResetTokenHash,
		hash:   func(a *Account) string { return a.ResetTokenHash },
		expiry: func(a *Account) *time.Time { return a.ResetExpiresAt },
	})
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.accounts.CompletePasswordReset(ctx, account.ID, hash); err != nil {
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "complete password reset").
			Wrap(err)
	}
	return nil
}

// ChangePassword replaces the password for an authenticated account
// after verifying the old one. The active session is kept.
func (s *VerificationService) ChangePassword(ctx context.Context, accountID ulid.ULID, oldPassword, newPassword string) error {
	if err := validateNewPassword(newPassword); err != nil {
		return err
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeNotFound).
				With("account_id", accountID.String()).
				Wrap(err)
		}
		return oops.Code("PASSWORD_CHANGE_FAILED").
			With("operation", "get account by id").
			Wrap(err)
	}

	valid, err := s.hasher.Verify(oldPassword, account.PasswordHash)
	if err != nil {
		return oops.Code("PASSWORD_CHANGE_FAILED").
			With("operation", "verify old password").
			Wrap(err)
	}
	if !valid {
		return oops.Code(CodeInvalidCredentials).Errorf("old password is incorrect")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("PASSWORD_CHANGE_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return oops.Code("PASSWORD_CHANGE_FAILED").
			With("operation", "update password").
			Wrap(err)
	}
	return nil
}

// tokenLookup parameterizes the shared hash-then-expiry redemption
// discipline over the two single-use token kinds.
type tokenLookup struct {
	get    func(ctx context.Context, hash string) (*Account, error)
	hash   func(a *Account) string
	expiry func(a *Account) *time.Time
}

func (s *VerificationService) lookupByToken(ctx context.Context, plaintext string, lk tokenLookup) (*Account, error) {
	if plaintext == "" {
		return nil, oops.Code(CodeInvalidToken).Errorf("token is required")
	}

	account, err := lk.get(ctx, HashSingleUseToken(plaintext))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeInvalidToken).Errorf("token is invalid")
		}
		return nil, oops.Code("TOKEN_LOOKUP_FAILED").
			With("operation", "get account by token hash").
			Wrap(err)
	}

	// The repository already matched on the hash; recheck against the
	// returned row so a lookup that ignores its argument cannot redeem
	// the wrong token.
	if !MatchSingleUseToken(plaintext, lk.hash(account)) {
		return nil, oops.Code(CodeInvalidToken).Errorf("token is invalid")
	}

	if singleUseTokenExpired(lk.expiry(account), time.Now()) {
		return nil, oops.Code(CodeExpiredToken).Errorf("token has expired")
	}
	return account, nil
}

// deliver hands a token to the notifier. Delivery failures are logged
// and swallowed; the token is already persisted and can be re-issued.
func (s *VerificationService) deliver(ctx context.Context, email string, kind NotificationKind, token string) {
	if err := s.notifier.Send(ctx, email, kind, token); err != nil {
		errutil.LogError(ctx, s.logger, "deliver notification", oops.
			With("kind", string(kind)).
			Wrap(err))
	}
}

func validateNewPassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return oops.Code("ACCOUNT_INVALID_PASSWORD").Errorf("new password is required")
	}
	if len(password) < MinPasswordLength {
		return oops.Code("ACCOUNT_INVALID_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
