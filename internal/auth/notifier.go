// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package auth

import "context"

// NotificationKind identifies what a notification is for.
type NotificationKind string

// Notification kinds delivered through the Notifier port.
const (
	NotifyVerification  NotificationKind = "verification"
	NotifyPasswordReset NotificationKind = "passwordReset"
)

// Notifier delivers a single-use token to an account holder out-of-band.
// The core treats delivery as fire-and-forget: failures are logged by
// the caller and never surface as an auth failure.
type Notifier interface {
	Send(ctx context.Context, email string, kind NotificationKind, token string) error
}
