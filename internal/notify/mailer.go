// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/samber/oops"

	"github.com/helmgate/helmgate/internal/auth"
)

// message holds a rendered notification before delivery.
type message struct {
	subject string
	body    string
}

// render builds the subject and body for a notification kind. The
// action URL embeds the plaintext single-use token.
func render(kind auth.NotificationKind, baseURL, token string) (message, error) {
	base := strings.TrimRight(baseURL, "/")

	switch kind {
	case auth.NotifyVerification:
		return message{
			subject: "Verify your email address",
			body: fmt.Sprintf(
				"Welcome! Please confirm your email address by visiting the link below.\r\n\r\n"+
					"%s/api/v1/auth/verify-email/%s\r\n\r\n"+
					"The link expires in 20 minutes.\r\n",
				base, token),
		}, nil
	case auth.NotifyPasswordReset:
		return message{
			subject: "Reset your password",
			body: fmt.Sprintf(
				"A password reset was requested for your account.\r\n\r\n"+
					"%s/reset-password/%s\r\n\r\n"+
					"The link expires in 20 minutes. If you did not request this, ignore this message.\r\n",
				base, token),
		}, nil
	default:
		return message{}, oops.Code("NOTIFY_UNKNOWN_KIND").
			With("kind", string(kind)).
			Errorf("unknown notification kind")
	}
}

// LogMailer writes notifications to the structured log instead of
// sending them. Intended for development and tests.
type LogMailer struct {
	baseURL string
	logger  *slog.Logger
}

// NewLogMailer creates a LogMailer. A nil logger uses slog.Default.
func NewLogMailer(baseURL string, logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{baseURL: baseURL, logger: logger}
}

// Send logs the rendered notification.
func (m *LogMailer) Send(ctx context.Context, email string, kind auth.NotificationKind, token string) error {
	msg, err := render(kind, m.baseURL, token)
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "notification delivered to log",
		"to", email,
		"kind", string(kind),
		"subject", msg.subject,
		"body", msg.body)
	return nil
}

// SMTPConfig holds relay settings for SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers notifications through an SMTP relay.
type SMTPMailer struct {
	cfg     SMTPConfig
	baseURL string
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates an SMTPMailer for the given relay.
func NewSMTPMailer(cfg SMTPConfig, baseURL string) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, oops.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, oops.Errorf("smtp from address is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg, baseURL: baseURL, send: smtp.SendMail}, nil
}

// Send renders and submits the notification to the relay.
func (m *SMTPMailer) Send(ctx context.Context, email string, kind auth.NotificationKind, token string) error {
	msg, err := render(kind, m.baseURL, token)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return oops.Code("NOTIFY_CANCELED").Wrap(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", email)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var a smtp.Auth
	if m.cfg.Username != "" {
		a = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, a, m.cfg.From, []string{email}, []byte(b.String())); err != nil {
		return oops.Code("NOTIFY_SEND_FAILED").
			With("relay", addr).
			With("kind", string(kind)).
			Wrap(err)
	}
	return nil
}

// Interface guards.
var (
	_ auth.Notifier = (*LogMailer)(nil)
	_ auth.Notifier = (*SMTPMailer)(nil)
)
