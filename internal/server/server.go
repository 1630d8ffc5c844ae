// Package server exposes the sync engine to visual editing surfaces
// over HTTP: a small JSON API plus a server-sent event stream for
// pushed updates.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/viewsmith/viewsmith/internal/syncer"
	"github.com/viewsmith/viewsmith/pkg/model"
)

// Server is the editing API server.
type Server struct {
	engine   *syncer.Engine
	port     int
	logger   *slog.Logger
	notifier *Notifier
}

// Config holds configuration for the API server.
type Config struct {
	Engine *syncer.Engine
	Port   int
	Logger *slog.Logger
}

// New creates a new Server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:   cfg.Engine,
		port:     cfg.Port,
		logger:   logger,
		notifier: NewNotifier(),
	}
}

// Notifier returns the server's notifier for pushed updates.
func (s *Server) Notifier() *Notifier {
	return s.notifier
}

// Callbacks returns engine callbacks that forward notifications to
// connected clients. Wire them into the syncer config before starting
// the engine.
func (s *Server) Callbacks() syncer.Callbacks {
	return syncer.Callbacks{
		OnExternalChange: func(id string, m *model.ComponentModel) {
			s.notifier.Broadcast(Event{Type: EventExternalChange, ID: id, Payload: m})
		},
		OnConflict: func(info syncer.ConflictInfo) {
			s.notifier.Broadcast(Event{Type: EventConflict, ID: info.ID, Payload: info})
		},
		OnError: func(info syncer.ErrorInfo) {
			s.notifier.Broadcast(Event{Type: EventError, ID: info.ID, Payload: map[string]string{
				"op":    info.Op,
				"error": info.Err.Error(),
			}})
		},
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/components", s.handleList)
		r.Get("/components/*", s.handleGet)
		r.Put("/components/*", s.handlePut)
		r.Post("/resolve/*", s.handleResolve)
		r.Get("/events", s.handleEvents)
	})

	return r
}

// Serve starts the API server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting API server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Consume the watcher stream alongside the HTTP server.
	eg.Go(func() error {
		if err := s.engine.Run(egctx); err != nil && err != context.Canceled {
			return fmt.Errorf("sync engine error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
