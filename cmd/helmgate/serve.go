// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package main

import (
	"context"
	stdtls "crypto/tls"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/helmgate/helmgate/internal/auth"
	authpg "github.com/helmgate/helmgate/internal/auth/postgres"
	"github.com/helmgate/helmgate/internal/config"
	"github.com/helmgate/helmgate/internal/httpapi"
	"github.com/helmgate/helmgate/internal/logging"
	"github.com/helmgate/helmgate/internal/notify"
	"github.com/helmgate/helmgate/internal/observability"
	"github.com/helmgate/helmgate/internal/store"
	helmtls "github.com/helmgate/helmgate/internal/tls"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account service",
		Long: `Start the HTTP API and the observability listener, connect to the
credential store, and serve until interrupted.`,
		RunE: runServe,
	}

	// Flag names are dotted config paths so they merge into the config.
	cmd.Flags().String("server.addr", ":8080", "API listen address")
	cmd.Flags().String("server.public_base_url", "http://localhost:8080", "public base URL for links in outbound mail")
	cmd.Flags().String("metrics.addr", "127.0.0.1:9100", "metrics listen address")
	cmd.Flags().String("log.format", "json", "log format (json or text)")
	cmd.Flags().String("mail.mode", "log", "mail delivery mode (log or smtp)")
	cmd.Flags().String("server.tls_cert", "", "TLS certificate file (enables HTTPS with server.tls_key)")
	cmd.Flags().String("server.tls_key", "", "TLS key file (enables HTTPS with server.tls_cert)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("helmgate", logging.Options{Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return err
	}

	repo := authpg.NewAccountRepository(pool)
	hasher := auth.NewArgon2idHasher()

	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		AccessSecret:  []byte(cfg.Tokens.AccessSecret),
		RefreshSecret: []byte(cfg.Tokens.RefreshSecret),
		AccessTTL:     cfg.Tokens.AccessTTL,
		RefreshTTL:    cfg.Tokens.RefreshTTL,
		Issuer:        cfg.Tokens.Issuer,
	})
	if err != nil {
		return err
	}

	verification, err := auth.NewVerificationService(repo, hasher, notifier)
	if err != nil {
		return err
	}
	sessions, err := auth.NewService(repo, hasher, codec, verification)
	if err != nil {
		return err
	}

	obs := observability.NewServer(cfg.Metrics.Addr, func() bool {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return pool.Ping(pingCtx) == nil
	})
	obsErr, err := obs.Start()
	if err != nil {
		return err
	}

	handler, err := httpapi.NewHandler(sessions, verification, codec, obs.Metrics(), cfg.Server.SecureCookies, slog.Default())
	if err != nil {
		return err
	}

	var tlsConfig *stdtls.Config
	if cfg.Server.TLSEnabled() {
		tlsConfig, err = helmtls.LoadServerConfig(cfg.Server.TLSCert, cfg.Server.TLSKey)
		if err != nil {
			return err
		}
	}
	api := httpapi.NewServer(cfg.Server.Addr, handler, tlsConfig)
	apiErr, err := api.Start()
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case serveErr := <-apiErr:
		if serveErr != nil {
			return oops.Code("API_SERVE_FAILED").Wrap(serveErr)
		}
	case serveErr := <-obsErr:
		if serveErr != nil {
			return oops.Code("OBS_SERVE_FAILED").Wrap(serveErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := api.Stop(shutdownCtx); err != nil {
		slog.Error("api shutdown failed", "error", err)
	}
	if err := obs.Stop(shutdownCtx); err != nil {
		slog.Error("observability shutdown failed", "error", err)
	}

	slog.Info("helmgate stopped")
	return nil
}

func buildNotifier(cfg *config.Config) (auth.Notifier, error) {
	switch cfg.Mail.Mode {
	case "smtp":
		return notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}, cfg.Server.PublicBaseURL)
	default:
		return notify.NewLogMailer(cfg.Server.PublicBaseURL, slog.Default()), nil
	}
}
