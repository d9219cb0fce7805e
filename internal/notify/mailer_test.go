// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	msg, err := render("verification", "https://helmgate.example/", "tok123")
	require.NoError(t, err)
	assert.Equal(t, "Verify your email address", msg.subject)
	assert.Contains(t, msg.body, "https://helmgate.example/api/v1/auth/verify-email/tok123")

	msg, err = render("passwordReset", "https://helmgate.example", "tok456")
	require.NoError(t, err)
	assert.Equal(t, "Reset your password", msg.subject)
	assert.Contains(t, msg.body, "https://helmgate.example/reset-password/tok456")
}

func TestRenderUnknownKind(t *testing.T) {
	_, err := render("carrier-pigeon", "https://helmgate.example", "tok")
	require.Error(t, err)
}

func TestLogMailerSend(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	m := NewLogMailer("https://helmgate.example", logger)

	err := m.Send(context.Background(), "user@example.com", "verification", "tok789")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "user@example.com")
	assert.Contains(t, out, "tok789")
}

func TestNewSMTPMailerValidation(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{From: "noreply@example.com"}, "https://helmgate.example")
	require.Error(t, err)

	_, err = NewSMTPMailer(SMTPConfig{Host: "relay.example.com"}, "https://helmgate.example")
	require.Error(t, err)

	m, err := NewSMTPMailer(SMTPConfig{Host: "relay.example.com", From: "noreply@example.com"}, "https://helmgate.example")
	require.NoError(t, err)
	assert.Equal(t, 587, m.cfg.Port)
}

func TestSMTPMailerSend(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{
		Host:     "relay.example.com",
		Port:     2525,
		Username: "helmgate",
		Password: "secret",
		From:     "noreply@example.com",
	}, "https://helmgate.example")
	require.NoError(t, err)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err = m.Send(context.Background(), "user@example.com", "passwordReset", "tok000")
	require.NoError(t, err)
	assert.Equal(t, "relay.example.com:2525", gotAddr)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"user@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Reset your password")
	assert.Contains(t, string(gotMsg), "reset-password/tok000")
}

func TestSMTPMailerSendFailure(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "relay.example.com", From: "noreply@example.com"}, "https://helmgate.example")
	require.NoError(t, err)

	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("relay refused")
	}

	err = m.Send(context.Background(), "user@example.com", "verification", "tok")
	require.Error(t, err)
}

func TestSMTPMailerSendCanceled(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "relay.example.com", From: "noreply@example.com"}, "https://helmgate.example")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = m.Send(ctx, "user@example.com", "verification", "tok")
	require.Error(t, err)
}
