// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

//go:build integration

package postgres_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmgate/helmgate/internal/auth"
	"github.com/helmgate/helmgate/internal/auth/postgres"
)

// createTestAccount inserts an account and registers cleanup.
func createTestAccount(ctx context.Context, t *testing.T, repo *postgres.AccountRepository) *auth.Account {
	t.Helper()

	id := ulid.Make()
	suffix := strings.ToLower(id.String())
	now := time.Now().UTC().Truncate(time.Microsecond)
	account := &auth.Account{
		ID:           id,
		Email:        "user_" + suffix + "@example.com",
		Username:     "user_" + suffix,
		PasswordHash: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		Role:         auth.RoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	require.NoError(t, repo.Create(ctx, account))
	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id.String())
	})
	return account
}

func TestAccountRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewAccountRepository(testPool)

	account := createTestAccount(ctx, t, repo)

	got, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.Email, got.Email)
	assert.Equal(t, account.Username, got.Username)
	assert.False(t, got.EmailVerified)
	assert.Empty(t, got.RefreshFingerprint)

	got, err = repo.GetByEmail(ctx, account.Email)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	got, err = repo.GetByUsername(ctx, account.Username)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
}

func TestAccountRepository_UniqueViolations(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewAccountRepository(testPool)

	account := createTestAccount(ctx, t, repo)

	dup := *account
	dup.ID = ulid.Make()
	err := repo.Create(ctx, &dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrDuplicate)

	// Uniqueness is case-insensitive.
	dup.ID = ulid.Make()
	dup.Email = strings.ToUpper(account.Email)
	dup.Username = "other_" + strings.ToLower(dup.ID.String())
	err = repo.Create(ctx, &dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrDuplicate)
}

func TestAccountRepository_VerificationLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewAccountRepository(testPool)

	account := createTestAccount(ctx, t, repo)

	token, err := auth.GenerateSingleUseToken(auth.VerificationTokenTTL)
	require.NoError(t, err)
	require.NoError(t, repo.SetVerificationToken(ctx, account.ID, token.Hash, token.ExpiresAt))

	got, err := repo.GetByVerificationTokenHash(ctx, token.Hash)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	require.NoError(t, repo.MarkEmailVerified(ctx, account.ID))

	// Redemption cleared the token fields; the hash no longer resolves.
	_, err = repo.GetByVerificationTokenHash(ctx, token.Hash)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	got, err = repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
}

func TestAccountRepository_ResetLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewAccountRepository(testPool)

	account := createTestAccount(ctx, t, repo)
	require.NoError(t, repo.SetRefreshFingerprint(ctx, account.ID, "active-session"))

	token, err := auth.GenerateSingleUseToken(auth.ResetTokenTTL)
	require.NoError(t, err)
	require.NoError(t, repo.SetResetToken(ctx, account.ID, token.Hash, token.ExpiresAt))

	require.NoError(t, repo.CompletePasswordReset(ctx, account.ID, "newhash"))

	got, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", got.PasswordHash)
	assert.Empty(t, got.ResetTokenHash)
	assert.Nil(t, got.ResetExpiresAt)
	assert.Empty(t, got.RefreshFingerprint, "reset must end the active session")

	_, err = repo.GetByResetTokenHash(ctx, token.Hash)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestAccountRepository_FingerprintRotation(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewAccountRepository(testPool)

	account := createTestAccount(ctx, t, repo)
	require.NoError(t, repo.SetRefreshFingerprint(ctx, account.ID, "fp-1"))

	require.NoError(t, repo.RotateRefreshFingerprint(ctx, account.ID, "fp-1", "fp-2"))

	// The superseded fingerprint no longer rotates.
	err := repo.RotateRefreshFingerprint(ctx, account.ID, "fp-1", "fp-3")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrFingerprintMismatch)

	require.NoError(t, repo.ClearRefreshFingerprint(ctx, account.ID))

	err = repo.RotateRefreshFingerprint(ctx, account.ID, "fp-2", "fp-4")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrFingerprintMismatch, "logout invalidates rotation")

	err = repo.RotateRefreshFingerprint(ctx, ulid.Make(), "fp-2", "fp-4")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestAccountRepository_ConcurrentRotation(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewAccountRepository(testPool)

	account := createTestAccount(ctx, t, repo)
	require.NoError(t, repo.SetRefreshFingerprint(ctx, account.ID, "shared-fp"))

	const attempts = 8
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			results <- repo.RotateRefreshFingerprint(ctx, account.ID, "shared-fp", "winner")
		}()
	}

	var wins, losses int
	for i := 0; i < attempts; i++ {
		if err := <-results; err == nil {
			wins++
		} else {
			losses++
		}
	}

	assert.Equal(t, 1, wins, "exactly one concurrent rotation may succeed")
	assert.Equal(t, attempts-1, losses)
}
