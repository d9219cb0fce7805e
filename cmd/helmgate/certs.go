// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helmgate/helmgate/internal/tls"
	"github.com/helmgate/helmgate/internal/xdg"
)

// NewCertsCmd creates the certs subcommand.
func NewCertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Manage development TLS certificates",
	}

	var (
		dir   string
		hosts []string
	)

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate a development CA and API server certificate",
		Long: `Generate a local CA and an API server certificate signed by it, so
the API can serve HTTPS during development. Point server.tls_cert and
server.tls_key at the generated api.crt and api.key.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				dir = xdg.CertsDir()
			}
			if err := xdg.EnsureDir(dir); err != nil {
				return err
			}

			ca, err := loadOrGenerateCA(dir)
			if err != nil {
				return err
			}
			serverCert, err := tls.GenerateServerCert(ca, hosts)
			if err != nil {
				return err
			}
			if err := tls.SaveCertificates(dir, ca, serverCert); err != nil {
				return err
			}

			certFile, keyFile := tls.ServerFiles(dir)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", certFile, keyFile)
			return nil
		},
	}
	generate.Flags().StringVar(&dir, "dir", "", "output directory (default: XDG certs dir)")
	generate.Flags().StringSliceVar(&hosts, "host", nil, "additional DNS names or IPs for the server certificate")

	cmd.AddCommand(generate)
	return cmd
}

// loadOrGenerateCA reuses an existing CA so regenerating the server
// certificate does not invalidate already-trusted roots.
func loadOrGenerateCA(dir string) (*tls.CA, error) {
	if ca, err := tls.LoadCA(dir); err == nil {
		return ca, nil
	}
	return tls.GenerateCA()
}
