// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package auth

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSingleUseToken(t *testing.T) {
	before := time.Now()
	token, err := GenerateSingleUseToken(VerificationTokenTTL)
	require.NoError(t, err)

	raw, err := hex.DecodeString(token.Plaintext)
	require.NoError(t, err, "plaintext must be hex")
	assert.Len(t, raw, SingleUseTokenBytes)

	assert.Equal(t, HashSingleUseToken(token.Plaintext), token.Hash)
	assert.NotEqual(t, token.Plaintext, token.Hash)

	assert.WithinDuration(t, before.Add(VerificationTokenTTL), token.ExpiresAt, time.Second)
}

func TestGenerateSingleUseTokenUnique(t *testing.T) {
	first, err := GenerateSingleUseToken(ResetTokenTTL)
	require.NoError(t, err)
	second, err := GenerateSingleUseToken(ResetTokenTTL)
	require.NoError(t, err)

	assert.NotEqual(t, first.Plaintext, second.Plaintext)
	assert.NotEqual(t, first.Hash, second.Hash)
}

func TestGenerateSingleUseTokenBadTTL(t *testing.T) {
	_, err := GenerateSingleUseToken(0)
	require.Error(t, err)

	_, err = GenerateSingleUseToken(-time.Minute)
	require.Error(t, err)
}

func TestMatchSingleUseToken(t *testing.T) {
	token, err := GenerateSingleUseToken(ResetTokenTTL)
	require.NoError(t, err)

	assert.True(t, MatchSingleUseToken(token.Plaintext, token.Hash))
	assert.False(t, MatchSingleUseToken("wrong", token.Hash))
	assert.False(t, MatchSingleUseToken("", token.Hash))
	assert.False(t, MatchSingleUseToken(token.Plaintext, ""))
}

func TestSingleUseTokenExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{name: "nil expiry", expiresAt: nil, want: true},
		{name: "before expiry", expiresAt: ptrTime(now.Add(time.Minute)), want: false},
		{name: "exactly at expiry", expiresAt: ptrTime(now), want: true},
		{name: "after expiry", expiresAt: ptrTime(now.Add(-time.Minute)), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, singleUseTokenExpired(tt.expiresAt, now))
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
