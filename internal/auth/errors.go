// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package auth

import "errors"

// Sentinel errors returned by AccountRepository implementations.
// Services translate these into coded errors for callers.
var (
	// ErrNotFound is returned when a requested account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a create would violate email or
	// username uniqueness.
	ErrDuplicate = errors.New("duplicate identity")

	// ErrFingerprintMismatch is returned when a conditional refresh
	// fingerprint rotation finds a different fingerprint than expected,
	// meaning the presented refresh token has been superseded.
	ErrFingerprintMismatch = errors.New("refresh fingerprint mismatch")
)

// Error codes surfaced to callers. The HTTP layer maps these onto status
// codes; messages for credential and token failures stay generic so the
// caller cannot distinguish "unknown account" from "wrong password".
const (
	CodeNotFound           = "ACCOUNT_NOT_FOUND"
	CodeConflict           = "ACCOUNT_EXISTS"
	CodeAlreadyVerified    = "ACCOUNT_ALREADY_VERIFIED"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeInvalidToken       = "TOKEN_INVALID"
	CodeExpiredToken       = "TOKEN_EXPIRED"
	CodeUnauthorized       = "AUTH_UNAUTHORIZED"
)
