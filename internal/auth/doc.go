// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

// Package auth implements the account and session core of Helmgate.
//
// # Domain Types
//
// Account is the persistent record of an identity: email, username,
// password hash, verification state, and the fingerprint of the one
// currently valid refresh token. Accounts should be created through
// NewAccount, which validates and normalizes identifiers. Direct struct
// initialization bypasses validation and may create invalid state.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - registration, login, logout, refresh-token rotation
//   - VerificationService - email verification and password reset flows
//
// Services read and write through the AccountRepository port, perform
// cryptographic work through PasswordHasher and TokenCodec, and hand
// outbound messages to the Notifier port. They never touch the network
// or the mail system directly.
package auth
