// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

// Package errutil provides helpers for logging and asserting on coded
// errors built with samber/oops.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error with structured context. For oops errors the
// code and attached context are extracted into attributes; other errors
// are logged as plain strings. The underlying cause stays in the log and
// is never returned to a caller.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	if err == nil {
		return
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.ErrorContext(ctx, msg, "error", err.Error())
		return
	}

	attrs := []any{"error", oopsErr.Error()}
	if code, ok := oopsErr.Code().(string); ok && code != "" {
		attrs = append(attrs, "code", code)
	}
	if errCtx := oopsErr.Context(); len(errCtx) > 0 {
		attrs = append(attrs, "context", errCtx)
	}
	logger.ErrorContext(ctx, msg, attrs...)
}

// Code returns the oops error code, or "" when err carries none.
func Code(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			return code
		}
	}
	return ""
}
