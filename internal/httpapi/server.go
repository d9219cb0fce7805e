// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package httpapi

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
)

// Server runs the API over HTTP or HTTPS with graceful shutdown.
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	tlsConfig  *tls.Config
	running    atomic.Bool
}

// NewServer creates a Server serving the handler's routes on addr. A
// non-nil tlsConfig switches the listener to HTTPS.
func NewServer(addr string, handler *Handler, tlsConfig *tls.Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler.RegisterRoutes(router)

	return &Server{
		addr:      addr,
		tlsConfig: tlsConfig,
		httpServer: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Addr returns the bound listen address. Only valid after Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Start begins serving. It returns an error channel that receives any
// serve failure; the channel is closed on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("API_LISTEN_FAILED").
			With("addr", s.addr).
			Wrap(err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}
	s.listener = listener

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := s.httpServer.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			errCh <- serveErr
		}
	}()

	slog.Info("api server started", "addr", s.Addr(), "tls", s.tlsConfig != nil)
	return errCh, nil
}

// Stop shuts the server down gracefully, draining in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return oops.Code("API_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}
