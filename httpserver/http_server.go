/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package httpserver provides the HTTP server of the broker service.
// It runs a chi router with request id, logging and recovery middlewares
// and exposes /healthz and /metrics next to the versioned API routes.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/atomic"

	"github.com/acronis/go-mlbroker/log"
	"github.com/acronis/go-mlbroker/service"
)

// HTTPServer is a wrapper around http.Server that implements service.Unit.
type HTTPServer struct {
	HTTPServer      *http.Server
	HTTPRouter      chi.Router
	Logger          log.FieldLogger
	ShutdownTimeout time.Duration

	listener atomic.Pointer[net.Listener]
	done     chan struct{}
}

var _ service.Unit = (*HTTPServer)(nil)

// New creates a new HTTPServer with the router built from opts.
func New(cfg *Config, logger log.FieldLogger, opts Opts) *HTTPServer {
	return NewWithHandler(cfg, logger, NewRouter(cfg, logger, opts))
}

// NewWithHandler creates a new HTTPServer receiving already created http.Handler.
func NewWithHandler(cfg *Config, logger log.FieldLogger, handler http.Handler) *HTTPServer {
	router, _ := handler.(chi.Router)
	return &HTTPServer{
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			WriteTimeout:      cfg.Timeouts.Write,
			ReadTimeout:       cfg.Timeouts.Read,
			ReadHeaderTimeout: cfg.Timeouts.ReadHeader,
			IdleTimeout:       cfg.Timeouts.Idle,
			Handler:           handler,
		},
		HTTPRouter:      router,
		Logger:          logger,
		ShutdownTimeout: cfg.Timeouts.Shutdown,
		done:            make(chan struct{}),
	}
}

// Start starts HTTP server in a blocking way.
// If a fatal error occurs, it will be sent to the fatalError channel.
func (s *HTTPServer) Start(fatalError chan<- error) {
	defer close(s.done)

	logger := s.Logger.With(
		log.String("address", s.HTTPServer.Addr),
		log.Duration("write_timeout", s.HTTPServer.WriteTimeout),
		log.Duration("read_timeout", s.HTTPServer.ReadTimeout),
		log.Duration("shutdown_timeout", s.ShutdownTimeout),
	)
	logger.Info("starting HTTP server...")

	listener, err := net.Listen("tcp", s.HTTPServer.Addr)
	if err != nil {
		logger.Error("HTTP server error", log.Error(err))
		fatalError <- err
		return
	}
	s.listener.Store(&listener)

	if err = s.HTTPServer.Serve(listener); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("HTTP server closed")
			return
		}
		logger.Error("HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop stops HTTP server (gracefully or not).
// Graceful shutdown waits for active requests, including ones awaiting the broker, within the shutdown timeout.
func (s *HTTPServer) Stop(gracefully bool) error {
	if !gracefully {
		s.Logger.Info("closing HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("HTTP server closing error", log.Error(err))
			return err
		}
		s.waitDone()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	s.Logger.Info("shutting down HTTP server...", log.Duration("timeout", s.ShutdownTimeout))
	if err := s.HTTPServer.Shutdown(ctx); err != nil {
		s.Logger.Error("HTTP server shutting down error", log.Error(err))
		return err
	}
	s.Logger.Info("HTTP server shut down")
	s.waitDone()
	return nil
}

func (s *HTTPServer) waitDone() {
	if s.listener.Load() != nil {
		<-s.done
	}
}

// Addr returns the address the server listens on, or nil if it's not listening yet.
// It's useful when the server is configured with port 0.
func (s *HTTPServer) Addr() net.Addr {
	l := s.listener.Load()
	if l == nil {
		return nil
	}
	return (*l).Addr()
}
