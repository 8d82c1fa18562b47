// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const defaultDrainTimeout = 10 * time.Second

// HTTPServerConfig configures an HTTPServer. Address, Handler, and
// Logger are required; NewHTTPServer panics when one is missing,
// since a server without them is a wiring bug, not a runtime
// condition.
type HTTPServerConfig struct {
	// Address is the TCP listen address, e.g. ":8080" or
	// "127.0.0.1:0" for an OS-assigned port.
	Address string

	// Handler serves every request. Routing, key checks, and payload
	// handling all live behind it.
	Handler http.Handler

	// ShutdownTimeout bounds the wait for in-flight requests after
	// the serve context is cancelled. Zero means 10 seconds.
	ShutdownTimeout time.Duration

	// Logger receives lifecycle events.
	Logger *slog.Logger
}

// HTTPServer owns the daemon's public TCP surface: the viewer page,
// health endpoint, HTTP line ingestion, and websocket upgrades all
// arrive through it. It handles listener lifecycle and graceful
// drain; everything about individual requests belongs to the
// configured handler.
type HTTPServer struct {
	config HTTPServerConfig

	// addr is written once before ready closes; readers must wait on
	// Ready first.
	addr  net.Addr
	ready chan struct{}
}

// NewHTTPServer creates a server from config. Call Serve to bind and
// start accepting.
func NewHTTPServer(config HTTPServerConfig) *HTTPServer {
	switch {
	case config.Address == "":
		panic("service.HTTPServer: missing Address")
	case config.Handler == nil:
		panic("service.HTTPServer: missing Handler")
	case config.Logger == nil:
		panic("service.HTTPServer: missing Logger")
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaultDrainTimeout
	}
	return &HTTPServer{
		config: config,
		ready:  make(chan struct{}),
	}
}

// Ready is closed once the listener is bound and accepting. Callers
// that need the port (or need to know startup succeeded) wait on it.
func (s *HTTPServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr is the bound listen address, resolved from the configured one.
// With a ":0" address this carries the port the OS picked. Valid only
// after Ready.
func (s *HTTPServer) Addr() net.Addr {
	return s.addr
}

// Serve binds the listener and accepts connections until ctx is
// cancelled, then drains in-flight requests for up to
// ShutdownTimeout. Returns nil after a clean drain.
func (s *HTTPServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler: s.config.Handler,

		// Slow-client protection. Ingest batches are small, so these
		// are generous. Websocket subscriptions are unaffected: the
		// upgrader hijacks the connection out from under these
		// deadlines and the subscriber manages its own.
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Cancellation triggers the drain from a callback; Serve below
	// returns ErrServerClosed once Shutdown has started and stops
	// accepting.
	drained := make(chan error, 1)
	stop := context.AfterFunc(ctx, func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		drained <- server.Shutdown(drainCtx)
	})
	defer stop()

	s.config.Logger.Info("http server listening", "address", s.addr.String())

	if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	if err := <-drained; err != nil {
		return fmt.Errorf("draining http connections: %w", err)
	}
	s.config.Logger.Info("http server stopped")
	return nil
}
