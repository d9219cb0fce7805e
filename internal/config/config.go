// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

// Package config loads and validates Helmgate configuration from
// defaults, an optional YAML file, and command-line flags, in that
// order of precedence (later wins).
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// MinSecretLength is the minimum accepted signing secret length in bytes.
const MinSecretLength = 32

// Config is the full Helmgate configuration tree.
type Config struct {
	Server   Server   `koanf:"server"`
	Database Database `koanf:"database"`
	Tokens   Tokens   `koanf:"tokens"`
	Mail     Mail     `koanf:"mail"`
	Metrics  Metrics  `koanf:"metrics"`
	Log      Log      `koanf:"log"`
}

// Server configures the HTTP API listener.
type Server struct {
	Addr string `koanf:"addr"`

	// PublicBaseURL is the externally reachable base URL used to build
	// verification and reset links in outbound mail.
	PublicBaseURL string `koanf:"public_base_url"`

	// SecureCookies marks session cookies Secure. Only ever disable this
	// for plain-HTTP local development.
	SecureCookies bool `koanf:"secure_cookies"`

	// TLSCert and TLSKey enable HTTPS when both are set. The certs
	// subcommand generates a local development pair.
	TLSCert string `koanf:"tls_cert"`
	TLSKey  string `koanf:"tls_key"`
}

// TLSEnabled reports whether the API listener should serve HTTPS.
func (s Server) TLSEnabled() bool {
	return s.TLSCert != "" && s.TLSKey != ""
}

// Database configures the credential store connection.
type Database struct {
	URL string `koanf:"url"`
}

// Tokens configures the token codec. Secrets are read once at startup
// and treated as immutable afterwards; they are never logged.
type Tokens struct {
	AccessSecret  string        `koanf:"access_secret"`
	RefreshSecret string        `koanf:"refresh_secret"`
	AccessTTL     time.Duration `koanf:"access_ttl"`
	RefreshTTL    time.Duration `koanf:"refresh_ttl"`
	Issuer        string        `koanf:"issuer"`
}

// Mail configures outbound notification delivery.
type Mail struct {
	// Mode selects the mailer: "smtp" for real delivery, "log" to write
	// messages to the log instead (development).
	Mode     string `koanf:"mode"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// Metrics configures the observability listener.
type Metrics struct {
	Addr string `koanf:"addr"`
}

// Log configures structured logging output.
type Log struct {
	Format string `koanf:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:          ":8080",
			PublicBaseURL: "http://localhost:8080",
			SecureCookies: true,
		},
		Tokens: Tokens{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "helmgate",
		},
		Mail: Mail{
			Mode: "log",
			Port: 587,
			From: "no-reply@localhost",
		},
		Metrics: Metrics{
			Addr: "127.0.0.1:9100",
		},
		Log: Log{
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, explicitly set flags, and environment fallbacks for secrets
// (DATABASE_URL, HELMGATE_ACCESS_SECRET, HELMGATE_REFRESH_SECRET,
// HELMGATE_MAIL_PASSWORD). Flag names use dotted config paths, e.g.
// --server.addr.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "merge flags").
				Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").
			With("operation", "unmarshal").
			Wrap(err)
	}

	applyEnvFallbacks(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvFallbacks fills secret-bearing fields from the environment
// when neither file nor flags set them, so secrets can stay out of
// config files entirely.
func applyEnvFallbacks(cfg *Config) {
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.Tokens.AccessSecret == "" {
		cfg.Tokens.AccessSecret = os.Getenv("HELMGATE_ACCESS_SECRET")
	}
	if cfg.Tokens.RefreshSecret == "" {
		cfg.Tokens.RefreshSecret = os.Getenv("HELMGATE_REFRESH_SECRET")
	}
	if cfg.Mail.Password == "" {
		cfg.Mail.Password = os.Getenv("HELMGATE_MAIL_PASSWORD")
	}
}

// Validate checks the configuration for startup.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.addr is required")
	}
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required (or set DATABASE_URL)")
	}
	if len(c.Tokens.AccessSecret) < MinSecretLength {
		return oops.Code("CONFIG_INVALID").
			With("min", MinSecretLength).
			Errorf("tokens.access_secret must be at least %d bytes", MinSecretLength)
	}
	if len(c.Tokens.RefreshSecret) < MinSecretLength {
		return oops.Code("CONFIG_INVALID").
			With("min", MinSecretLength).
			Errorf("tokens.refresh_secret must be at least %d bytes", MinSecretLength)
	}
	if c.Tokens.AccessSecret == c.Tokens.RefreshSecret {
		return oops.Code("CONFIG_INVALID").Errorf("access and refresh secrets must differ")
	}
	if c.Tokens.AccessTTL <= 0 || c.Tokens.RefreshTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("token lifetimes must be positive")
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return oops.Code("CONFIG_INVALID").Errorf("server.tls_cert and server.tls_key must be set together")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("format", c.Log.Format).
			Errorf("log.format must be 'json' or 'text'")
	}
	switch c.Mail.Mode {
	case "log":
	case "smtp":
		if c.Mail.Host == "" {
			return oops.Code("CONFIG_INVALID").Errorf("mail.host is required in smtp mode")
		}
	default:
		return oops.Code("CONFIG_INVALID").
			With("mode", c.Mail.Mode).
			Errorf("mail.mode must be 'log' or 'smtp'")
	}
	return nil
}
