// Package pasteserver is a minimal self-hostable anonymous-paste backend for
// sync blobs. It speaks the same API the client adapter expects: POST a blob,
// GET it back by id, DELETE it early with the deletion token issued at
// creation. Pastes expire after a retention window and are swept lazily.
package pasteserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/momentum-sync/internal/middleware"
)

// Config holds the backend's settings.
type Config struct {
	Port    int
	DBPath  string
	BaseURL string
	// Secret signs deletion tokens. Must be at least 16 characters.
	Secret string
	// Retention is how long pastes live. Defaults to 48h, matching the sync
	// code lifetime on the client side.
	Retention time.Duration
	// Quota is the per-IP hourly request budget. Defaults to 60.
	Quota int
}

// Server is the HTTP server and its owned resources. It is the composition
// root: storage, tokens, quota, and routes are all wired here.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	storage *Storage
}

// New creates a Server, opening the paste database and wiring all routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.Retention <= 0 {
		cfg.Retention = 48 * time.Hour
	}
	if cfg.Quota <= 0 {
		cfg.Quota = 60
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	storage, err := NewStorage(cfg.DBPath, cfg.Retention)
	if err != nil {
		return nil, fmt.Errorf("opening paste storage: %w", err)
	}

	tokens, err := NewTokenService(cfg.Secret, cfg.Retention)
	if err != nil {
		storage.Close()
		return nil, err
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		storage: storage,
	}
	s.setupRoutes(tokens)

	return s, nil
}

func (s *Server) setupRoutes(tokens *TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	h := NewHandler(s.storage, tokens, s.config.BaseURL, s.logger)
	quota := newIPQuota(s.config.Quota, time.Hour)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(quota.middleware)
		r.Post("/pastes", h.HandleCreate)
		r.Get("/pastes/{id}", h.HandleGet)
		r.Delete("/pastes/{id}", h.HandleDelete)
	})
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, drain in-flight requests, close the database.
func (s *Server) Start() error {
	defer s.storage.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("paste backend starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.Duration("retention", s.config.Retention),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
