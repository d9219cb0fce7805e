// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

// Package postgres implements the auth repository ports on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/helmgate/helmgate/internal/auth"
)

// poolIface is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// accountColumns is the column list shared by every account select.
const accountColumns = `id, email, username, password_hash, role, email_verified,
	       refresh_fingerprint, verification_token_hash, verification_expires_at,
	       reset_token_hash, reset_expires_at, created_at, updated_at`

// AccountRepository implements auth.AccountRepository using PostgreSQL.
// Uniqueness of email and username is enforced by unique indexes on the
// lowercased columns; the refresh fingerprint rotation is a single
// conditional UPDATE, which is the atomic compare-and-swap the session
// core relies on.
type AccountRepository struct {
	pool poolIface
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (
			id, email, username, password_hash, role, email_verified,
			refresh_fingerprint, verification_token_hash, verification_expires_at,
			reset_token_hash, reset_expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		account.ID.String(),
		account.Email,
		account.Username,
		account.PasswordHash,
		string(account.Role),
		account.EmailVerified,
		account.RefreshFingerprint,
		nullableString(account.VerificationTokenHash),
		account.VerificationExpiresAt,
		nullableString(account.ResetTokenHash),
		account.ResetExpiresAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("ACCOUNT_DUPLICATE").
				With("username", account.Username).
				Wrap(auth.ErrDuplicate)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("username", account.Username).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id.String())
	return r.wrapScan(row, "id", id.String())
}

// GetByEmail retrieves an account by email (case-insensitive).
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`, email)
	return r.wrapScan(row, "email", email)
}

// GetByUsername retrieves an account by username (case-insensitive).
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE LOWER(username) = LOWER($1)
	`, username)
	return r.wrapScan(row, "username", username)
}

// GetByVerificationTokenHash retrieves the account holding an
// outstanding verification token hash.
func (r *AccountRepository) GetByVerificationTokenHash(ctx context.Context, hash string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE verification_token_hash = $1
	`, hash)
	return r.wrapScan(row, "lookup", "verification_token_hash")
}

// GetByResetTokenHash retrieves the account holding an outstanding reset
// token hash.
func (r *AccountRepository) GetByResetTokenHash(ctx context.Context, hash string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE reset_token_hash = $1
	`, hash)
	return r.wrapScan(row, "lookup", "reset_token_hash")
}

// UpdatePassword replaces the password hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now().UTC())
	return r.checkWrite(result, err, "ACCOUNT_UPDATE_PASSWORD_FAILED", id)
}

// SetVerificationToken stores a verification token hash and expiry,
// overwriting any outstanding one.
func (r *AccountRepository) SetVerificationToken(ctx context.Context, id ulid.ULID, hash string, expiresAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET
			verification_token_hash = $2,
			verification_expires_at = $3,
			updated_at = $4
		WHERE id = $1
	`, id.String(), hash, expiresAt, time.Now().UTC())
	return r.checkWrite(result, err, "ACCOUNT_SET_VERIFICATION_FAILED", id)
}

// MarkEmailVerified sets the verified flag and clears the verification
// token fields in one statement.
func (r *AccountRepository) MarkEmailVerified(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET
			email_verified = TRUE,
			verification_token_hash = NULL,
			verification_expires_at = NULL,
			updated_at = $2
		WHERE id = $1
	`, id.String(), time.Now().UTC())
	return r.checkWrite(result, err, "ACCOUNT_MARK_VERIFIED_FAILED", id)
}

// SetResetToken stores a reset token hash and expiry, overwriting any
// outstanding one.
func (r *AccountRepository) SetResetToken(ctx context.Context, id ulid.ULID, hash string, expiresAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET
			reset_token_hash = $2,
			reset_expires_at = $3,
			updated_at = $4
		WHERE id = $1
	`, id.String(), hash, expiresAt, time.Now().UTC())
	return r.checkWrite(result, err, "ACCOUNT_SET_RESET_FAILED", id)
}

// CompletePasswordReset replaces the password hash, clears the reset
// token fields, and clears the refresh fingerprint in one statement, so
// sessions issued under the old credential stop refreshing.
func (r *AccountRepository) CompletePasswordReset(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET
			password_hash = $2,
			reset_token_hash = NULL,
			reset_expires_at = NULL,
			refresh_fingerprint = '',
			updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now().UTC())
	return r.checkWrite(result, err, "ACCOUNT_RESET_COMPLETE_FAILED", id)
}

// SetRefreshFingerprint overwrites the refresh fingerprint.
func (r *AccountRepository) SetRefreshFingerprint(ctx context.Context, id ulid.ULID, fingerprint string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET refresh_fingerprint = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), fingerprint, time.Now().UTC())
	return r.checkWrite(result, err, "ACCOUNT_SET_FINGERPRINT_FAILED", id)
}

// RotateRefreshFingerprint replaces the fingerprint only when the stored
// value matches oldFingerprint. The WHERE clause makes the check and the
// swap one atomic statement: of two concurrent rotations presenting the
// same token, exactly one matches.
func (r *AccountRepository) RotateRefreshFingerprint(ctx context.Context, id ulid.ULID, oldFingerprint, newFingerprint string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET refresh_fingerprint = $3, updated_at = $4
		WHERE id = $1 AND refresh_fingerprint = $2
	`, id.String(), oldFingerprint, newFingerprint, time.Now().UTC())
	if err != nil {
		return oops.Code("ACCOUNT_ROTATE_FINGERPRINT_FAILED").
			With("operation", "rotate refresh fingerprint").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		// Distinguish a missing account from a superseded fingerprint.
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return oops.Code("ACCOUNT_NOT_FOUND").
				With("id", id.String()).
				Wrap(auth.ErrNotFound)
		}
		return oops.Code("ACCOUNT_FINGERPRINT_STALE").
			With("id", id.String()).
			Wrap(auth.ErrFingerprintMismatch)
	}
	return nil
}

// ClearRefreshFingerprint removes the active session marker.
func (r *AccountRepository) ClearRefreshFingerprint(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET refresh_fingerprint = '', updated_at = $2
		WHERE id = $1
	`, id.String(), time.Now().UTC())
	return r.checkWrite(result, err, "ACCOUNT_CLEAR_FINGERPRINT_FAILED", id)
}

func (r *AccountRepository) exists(ctx context.Context, id ulid.ULID) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`,
		id.String(),
	).Scan(&found)
	if err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_CHECK_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	return found, nil
}

// checkWrite folds the shared exec error and rows-affected handling.
func (r *AccountRepository) checkWrite(result pgconn.CommandTag, err error, code string, id ulid.ULID) error {
	if err != nil {
		return oops.Code(code).
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// wrapScan scans a single account row, translating pgx.ErrNoRows into
// the ErrNotFound sentinel with lookup context.
func (r *AccountRepository) wrapScan(row pgx.Row, key, value string) (*auth.Account, error) {
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With(key, value).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With(key, value).
			Wrap(err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		idStr              string
		email              string
		username           string
		passwordHash       string
		role               string
		emailVerified      bool
		refreshFingerprint string
		verificationHash   *string
		verificationExpiry *time.Time
		resetHash          *string
		resetExpiry        *time.Time
		createdAt          time.Time
		updatedAt          time.Time
	)

	err := row.Scan(
		&idStr,
		&email,
		&username,
		&passwordHash,
		&role,
		&emailVerified,
		&refreshFingerprint,
		&verificationHash,
		&verificationExpiry,
		&resetHash,
		&resetExpiry,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to wrap with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with lookup-specific info
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	account := &auth.Account{
		ID:                    id,
		Email:                 email,
		Username:              username,
		PasswordHash:          passwordHash,
		Role:                  auth.Role(role),
		EmailVerified:         emailVerified,
		RefreshFingerprint:    refreshFingerprint,
		VerificationExpiresAt: verificationExpiry,
		ResetExpiresAt:        resetExpiry,
		CreatedAt:             createdAt,
		UpdatedAt:             updatedAt,
	}
	if verificationHash != nil {
		account.VerificationTokenHash = *verificationHash
	}
	if resetHash != nil {
		account.ResetTokenHash = *resetHash
	}
	return account, nil
}

// nullableString maps "" to NULL so partial unique indexes on the token
// hash columns never collide on empty values.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
