// Package server wires configuration, storage, services and handlers into
// one chi router and runs it with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/artist-manager/internal/apidoc"
	"github.com/sakif/artist-manager/internal/auth"
	"github.com/sakif/artist-manager/internal/config"
	"github.com/sakif/artist-manager/internal/handler"
	"github.com/sakif/artist-manager/internal/middleware"
	"github.com/sakif/artist-manager/internal/repository"
	sqliteRepo "github.com/sakif/artist-manager/internal/repository/sqlite"
	"github.com/sakif/artist-manager/internal/resource"
	"github.com/sakif/artist-manager/internal/service"
)

// Version is reported in the API document. Overridden at build time with
// -ldflags "-X github.com/sakif/artist-manager/internal/server.Version=...".
var Version = "dev"

type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	registry *resource.Registry
	store    repository.Store // owned by the server, closed on shutdown
	metrics  *prometheus.Registry
}

// New opens the store and builds the router. Call Close (or Start, which
// closes on return) to release the database.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	reg := resource.Default()

	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.Database.Path, reg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		registry: reg,
		store:    db,
		metrics:  prometheus.NewRegistry(),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	hasher, err := auth.NewPasswordService(s.config.Security.BcryptCost)
	if err != nil {
		return err
	}
	s.logger.Debug("password hashing configured", slog.Int("bcrypt_cost", hasher.Cost()))

	s.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewMetrics(s.metrics)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(httpMetrics.Handler)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	if s.config.RateLimit.Requests > 0 {
		s.router.Use(httprate.Limit(
			s.config.RateLimit.Requests,
			s.config.RateLimit.Window,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(handler.RateLimited),
		))
	}

	s.router.NotFound(handler.NotFound)
	s.router.MethodNotAllowed(handler.MethodNotAllowed)

	s.router.Get("/healthz", handler.NewHealthHandler(s.store, s.logger).HandleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))

	if s.config.Docs.Enabled {
		doc := apidoc.Build(s.registry, apidoc.Info{
			Title:       "Artist Manager API",
			Version:     Version,
			Description: "CRUD API for artists, their releases, deals, tours and finances.",
		})
		if err := apidoc.Mount(s.router, doc); err != nil {
			return err
		}
	}

	s.router.Route(apidoc.BasePath, func(r chi.Router) {
		for _, d := range s.registry.All() {
			svc := service.NewResourceService(d, s.store, hasher, s.logger)
			r.Mount("/"+d.Path, handler.NewResourceHandler(svc, s.logger).Routes())
		}
	})

	return nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests and
// closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("database", s.config.Database.Path),
			slog.Bool("docs", s.config.Docs.Enabled),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
