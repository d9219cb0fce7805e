// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testArgon2Params keeps hashing cheap in tests.
var testArgon2Params = Argon2Params{
	Time:    1,
	Memory:  1024,
	Threads: 1,
	SaltLen: 16,
	KeyLen:  32,
}

func TestArgon2idHasherRoundTrip(t *testing.T) {
	h := NewArgon2idHasherWithParams(testArgon2Params)

	hash, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	valid, err := h.Verify("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = h.Verify("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestArgon2idHasherSaltsDiffer(t *testing.T) {
	h := NewArgon2idHasherWithParams(testArgon2Params)

	first, err := h.Hash("same password")
	require.NoError(t, err)
	second, err := h.Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "same password must hash differently per salt")
}

func TestArgon2idHasherEmptyPassword(t *testing.T) {
	h := NewArgon2idHasherWithParams(testArgon2Params)

	_, err := h.Hash("")
	require.ErrorIs(t, err, ErrEmptyPassword)
}

func TestArgon2idHasherVerifyAcrossParamChanges(t *testing.T) {
	old := NewArgon2idHasherWithParams(Argon2Params{Time: 2, Memory: 2048, Threads: 2, SaltLen: 16, KeyLen: 32})
	hash, err := old.Hash("stable password")
	require.NoError(t, err)

	// Parameters are decoded from the stored hash, not the hasher.
	current := NewArgon2idHasherWithParams(testArgon2Params)
	valid, err := current.Verify("stable password", hash)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestArgon2idHasherVerifyMalformed(t *testing.T) {
	h := NewArgon2idHasherWithParams(testArgon2Params)

	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "not phc", hash: "plaintext"},
		{name: "wrong algorithm", hash: "$bcrypt$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA"},
		{name: "bad version", hash: "$argon2id$v=99$m=1024,t=1,p=1$c2FsdA$aGFzaA"},
		{name: "bad params", hash: "$argon2id$v=19$nonsense$c2FsdA$aGFzaA"},
		{name: "bad salt encoding", hash: "$argon2id$v=19$m=1024,t=1,p=1$!!$aGFzaA"},
		{name: "bad key encoding", hash: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, err := h.Verify("password", tt.hash)
			require.Error(t, err)
			assert.False(t, valid)
		})
	}
}

func TestDummyPasswordHashNeverMatches(t *testing.T) {
	h := NewArgon2idHasher()

	valid, err := h.Verify("any password at all", dummyPasswordHash)
	require.NoError(t, err, "the dummy hash must be structurally valid")
	assert.False(t, valid)
}
