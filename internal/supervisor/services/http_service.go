// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelgraph/internal/logging"
)

// HTTPServer is the lifecycle of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerFactory builds a fresh server. An *http.Server cannot listen
// again after Shutdown, so every Serve run asks for a new one.
type HTTPServerFactory func() HTTPServer

// HTTPServerService runs an HTTP server under suture.
//
//	svc := services.NewHTTPServerService(func() services.HTTPServer {
//	    return &http.Server{Addr: cfg.Server.Addr(), Handler: router}
//	}, cfg.Server.ShutdownTimeout)
//	tree.AddAPIService(svc)
type HTTPServerService struct {
	newServer       HTTPServerFactory
	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

// NewHTTPServerService wraps newServer. shutdownTimeout bounds connection
// draining and defaults to 10s.
func NewHTTPServerService(newServer HTTPServerFactory, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		newServer:       newServer,
		shutdownTimeout: shutdownTimeout,
		logger:          logging.WithComponent("http-server"),
	}
}

// Serve listens until ctx is canceled, then shuts down gracefully. A
// listen failure is returned so the supervisor restarts the service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	server := h.newServer()

	errCh := make(chan error, 1)
	go func() {
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()
	if s, ok := server.(*http.Server); ok {
		h.logger.Info().Str("addr", s.Addr).Msg("HTTP server listening")
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.shutdownTimeout)
		defer cancel()

		h.logger.Info().Dur("timeout", h.shutdownTimeout).Msg("HTTP server shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String identifies the service in supervisor logs.
func (h *HTTPServerService) String() string {
	return "http-server"
}
