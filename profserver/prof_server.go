/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package profserver provides an optional HTTP server exposing pprof endpoints of the broker process.
package profserver

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"

	"github.com/acronis/go-mlbroker/httpserver/middleware"
	"github.com/acronis/go-mlbroker/log"
	"github.com/acronis/go-mlbroker/service"
)

const readHeaderTimeout = 5 * time.Second

// ProfServer serves /debug/pprof/* endpoints. It implements service.Unit.
type ProfServer struct {
	HTTPServer *http.Server
	Logger     log.FieldLogger

	listener atomic.Pointer[net.Listener]
	done     chan struct{}
}

var _ service.Unit = (*ProfServer)(nil)

// New creates a new profiling server.
func New(cfg *Config, logger log.FieldLogger) *ProfServer {
	router := chi.NewRouter()
	router.Use(middleware.RequestID(), middleware.Logging(logger))
	router.Mount("/debug", chimw.Profiler())

	return &ProfServer{
		HTTPServer: &http.Server{Addr: cfg.Address, Handler: router, ReadHeaderTimeout: readHeaderTimeout},
		Logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start listens and serves in a blocking way.
func (s *ProfServer) Start(fatalErr chan<- error) {
	defer close(s.done)

	logger := s.Logger.With(log.String("address", s.HTTPServer.Addr))
	logger.Info("starting profiling HTTP server...")

	listener, err := net.Listen("tcp", s.HTTPServer.Addr)
	if err != nil {
		logger.Error("profiling HTTP server error", log.Error(err))
		fatalErr <- err
		return
	}
	s.listener.Store(&listener)

	if err = s.HTTPServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("profiling HTTP server error", log.Error(err))
		fatalErr <- err
		return
	}
	logger.Info("profiling HTTP server closed")
}

// Stop closes the server. Profiling requests are never waited for.
func (s *ProfServer) Stop(_ bool) error {
	if err := s.HTTPServer.Close(); err != nil {
		s.Logger.Error("profiling HTTP server closing error", log.Error(err))
		return err
	}
	if s.listener.Load() != nil {
		<-s.done
	}
	return nil
}

// Addr returns the address the server listens on, or nil if it's not listening yet.
func (s *ProfServer) Addr() net.Addr {
	l := s.listener.Load()
	if l == nil {
		return nil
	}
	return (*l).Addr()
}
