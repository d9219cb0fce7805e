// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

// Package notify delivers account notifications over email.
//
// Two implementations of auth.Notifier live here: LogMailer, which
// writes the message to the structured log for local development, and
// SMTPMailer, which submits it to a relay over SMTP with AUTH PLAIN.
// Both build the action link from the service's public base URL so the
// single-use token reaches the user as a clickable URL.
package notify
