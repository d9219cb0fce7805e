// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func parseLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

func TestNewAddsServiceAttr(t *testing.T) {
	var buf bytes.Buffer
	logger := New("helmgate", Options{Writer: &buf})

	logger.Info("hello")

	record := parseLine(t, &buf)
	assert.Equal(t, "helmgate", record["service"])
	assert.Equal(t, "hello", record["msg"])
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New("helmgate", Options{Format: "text", Writer: &buf})

	logger.Info("hello")

	assert.Contains(t, buf.String(), "service=helmgate")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNewLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New("helmgate", Options{Level: slog.LevelWarn, Writer: &buf})

	logger.Info("filtered")
	assert.Empty(t, buf.String())

	logger.Warn("emitted")
	assert.NotEmpty(t, buf.String())
}

func TestHandlerAddsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New("helmgate", Options{Writer: &buf})

	traceID := trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	spanID := trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "traced")

	record := parseLine(t, &buf)
	assert.Equal(t, traceID.String(), record["trace_id"])
	assert.Equal(t, spanID.String(), record["span_id"])
}

func TestHandlerWithoutSpanOmitsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := New("helmgate", Options{Writer: &buf})

	logger.InfoContext(context.Background(), "untraced")

	record := parseLine(t, &buf)
	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "span_id")
}

func TestWithAttrsPreservesService(t *testing.T) {
	var buf bytes.Buffer
	logger := New("helmgate", Options{Writer: &buf})

	logger.With("key", "value").Info("nested")

	record := parseLine(t, &buf)
	assert.Equal(t, "value", record["key"])
	assert.Equal(t, "helmgate", record["service"])
}
