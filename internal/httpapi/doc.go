// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

// Package httpapi exposes the account service over HTTP.
//
// Routes live under /api/v1/auth. Token pairs travel both in the JSON
// response body and as HttpOnly cookies, so browser and non-browser
// clients can use the same endpoints. Error responses carry the
// service's error code and a user-safe message; internal causes stay in
// the log.
package httpapi
