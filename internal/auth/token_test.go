// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package auth

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmgate/helmgate/pkg/errutil"
)

func testCodec(t *testing.T) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(TokenConfig{
		AccessSecret:  []byte("access-secret-for-tests-32-bytes"),
		RefreshSecret: []byte("refresh-secret-for-tests-32-byte"),
		Issuer:        "helmgate-test",
	})
	require.NoError(t, err)
	return codec
}

func TestNewTokenCodecValidation(t *testing.T) {
	tests := []struct {
		name    string
		access  []byte
		refresh []byte
	}{
		{name: "missing access secret", access: nil, refresh: []byte("r")},
		{name: "missing refresh secret", access: []byte("a"), refresh: nil},
		{name: "identical secrets", access: []byte("same"), refresh: []byte("same")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenCodec(TokenConfig{AccessSecret: tt.access, RefreshSecret: tt.refresh})
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "TOKEN_CONFIG_INVALID")
		})
	}
}

func TestNewTokenCodecDefaultsTTLs(t *testing.T) {
	codec := testCodec(t)

	assert.Equal(t, DefaultAccessTokenTTL, codec.cfg.AccessTTL)
	assert.Equal(t, DefaultRefreshTokenTTL, codec.cfg.RefreshTTL)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec := testCodec(t)
	accountID := ulid.Make()

	token, err := codec.IssueAccessToken(accountID, RoleAdmin)
	require.NoError(t, err)

	claims, err := codec.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, accountID.String(), claims.AccountID)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "helmgate-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID, "jti must be set")
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	codec := testCodec(t)
	accountID := ulid.Make()

	token, err := codec.IssueRefreshToken(accountID)
	require.NoError(t, err)

	claims, err := codec.VerifyRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, accountID.String(), claims.AccountID)
	assert.Empty(t, claims.Role, "refresh tokens carry no role")
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	codec := testCodec(t)
	accountID := ulid.Make()

	access, err := codec.IssueAccessToken(accountID, RoleMember)
	require.NoError(t, err)
	refresh, err := codec.IssueRefreshToken(accountID)
	require.NoError(t, err)

	_, err = codec.VerifyAccessToken(refresh)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeInvalidToken)

	_, err = codec.VerifyRefreshToken(access)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeInvalidToken)
}

func TestVerifyExpiredToken(t *testing.T) {
	codec, err := NewTokenCodec(TokenConfig{
		AccessSecret:  []byte("access-secret-for-tests-32-bytes"),
		RefreshSecret: []byte("refresh-secret-for-tests-32-byte"),
		AccessTTL:     time.Millisecond,
	})
	require.NoError(t, err)

	token, err := codec.IssueAccessToken(ulid.Make(), RoleMember)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = codec.VerifyAccessToken(token)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeExpiredToken)
}

func TestVerifyGarbageToken(t *testing.T) {
	codec := testCodec(t)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := codec.VerifyAccessToken(token)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, CodeInvalidToken)
	}
}

func TestIssueZeroAccountID(t *testing.T) {
	codec := testCodec(t)

	_, err := codec.IssueAccessToken(ulid.ULID{}, RoleMember)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "TOKEN_ISSUE_FAILED")
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("some token")

	assert.Len(t, fp, 64, "sha256 hex is 64 characters")
	assert.Equal(t, fp, Fingerprint("some token"), "fingerprint is deterministic")
	assert.NotEqual(t, fp, Fingerprint("another token"))
}
