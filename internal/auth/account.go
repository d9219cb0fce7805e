// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role is a low-cardinality tag attached to an account.
type Role string

// Built-in roles.
const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// usernameRegex matches usernames that start with a letter and contain
// only lowercase letters, numbers, and underscores. Usernames are
// normalized to lowercase before validation.
var usernameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// emailRegex is a light structural check; the mail system is the real
// arbiter of deliverability.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Account represents a user account.
//
// RefreshFingerprint holds the SHA-256 fingerprint of the one currently
// valid refresh token; empty means no active session. The verification
// and reset fields are present only while the corresponding single-use
// token is outstanding.
type Account struct {
	ID                    ulid.ULID
	Email                 string
	Username              string
	PasswordHash          string
	Role                  Role
	EmailVerified         bool
	RefreshFingerprint    string
	VerificationTokenHash string
	VerificationExpiresAt *time.Time
	ResetTokenHash        string
	ResetExpiresAt        *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewAccount creates a validated Account with a fresh ULID. Email and
// username are lowercased; the password hash must already be computed by
// a PasswordHasher. The account starts unverified with no active session.
func NewAccount(email, username, passwordHash string, role Role) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.ToLower(strings.TrimSpace(username))

	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if role == "" {
		role = RoleMember
	}

	now := time.Now().UTC()
	return &Account{
		ID:           ulid.Make(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateEmail validates an email address structurally.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return oops.Code("ACCOUNT_INVALID_EMAIL").
			With("email", email).
			Errorf("email is not a valid address")
	}
	return nil
}

// ValidateUsername validates a normalized (lowercase) username.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("ACCOUNT_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("ACCOUNT_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("ACCOUNT_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("ACCOUNT_INVALID_USERNAME").
			Errorf("username must start with a letter and contain only lowercase letters, numbers, and underscores")
	}
	return nil
}

// HasActiveSession reports whether a refresh token is currently valid
// for this account.
func (a *Account) HasActiveSession() bool {
	return a.RefreshFingerprint != ""
}

// View is the caller-facing projection of an Account. It never carries
// the password hash or any token hash.
type View struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	Role          Role      `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// View returns the sanitized projection of the account.
func (a *Account) View() View {
	return View{
		ID:            a.ID.String(),
		Email:         a.Email,
		Username:      a.Username,
		Role:          a.Role,
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt,
	}
}

// AccountRepository manages account persistence.
//
// Write methods are partial updates: each one is a single atomic
// statement in the store, so a flow either lands completely or not at
// all. RotateRefreshFingerprint is the only conditional write and is the
// core's sole serialization point for concurrent refreshes.
type AccountRepository interface {
	// Create stores a new account. Returns ErrDuplicate (wrapped) when
	// the email or username is already taken.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByUsername retrieves an account by username (case-insensitive).
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// GetByVerificationTokenHash retrieves the account holding the given
	// outstanding email verification token hash.
	GetByVerificationTokenHash(ctx context.Context, hash string) (*Account, error)

	// GetByResetTokenHash retrieves the account holding the given
	// outstanding password reset token hash.
	GetByResetTokenHash(ctx context.Context, hash string) (*Account, error)

	// UpdatePassword replaces the password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// SetVerificationToken stores a verification token hash and expiry,
	// superseding any outstanding one.
	SetVerificationToken(ctx context.Context, id ulid.ULID, hash string, expiresAt time.Time) error

	// MarkEmailVerified sets the verified flag and clears the
	// verification token fields in one statement.
	MarkEmailVerified(ctx context.Context, id ulid.ULID) error

	// SetResetToken stores a reset token hash and expiry, superseding
	// any outstanding one.
	SetResetToken(ctx context.Context, id ulid.ULID, hash string, expiresAt time.Time) error

	// CompletePasswordReset replaces the password hash, clears the reset
	// token fields, and clears the refresh fingerprint in one statement.
	CompletePasswordReset(ctx context.Context, id ulid.ULID, passwordHash string) error

	// SetRefreshFingerprint overwrites the refresh fingerprint
	// unconditionally. Used on login, where the new session supersedes
	// whatever was active.
	SetRefreshFingerprint(ctx context.Context, id ulid.ULID, fingerprint string) error

	// RotateRefreshFingerprint replaces the fingerprint only if the
	// stored value equals oldFingerprint. Returns ErrFingerprintMismatch
	// (wrapped) when the stored value differs, which includes the case
	// where it was cleared by logout.
	RotateRefreshFingerprint(ctx context.Context, id ulid.ULID, oldFingerprint, newFingerprint string) error

	// ClearRefreshFingerprint removes the active session marker. Clearing
	// an already-clear fingerprint is not an error.
	ClearRefreshFingerprint(ctx context.Context, id ulid.ULID) error
}
