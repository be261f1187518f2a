// Package web provides the HTTP server and handlers for the tax reference
// API and the spreadsheet validation endpoint.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JonMunkholm/taxref/internal/config"
	"github.com/JonMunkholm/taxref/internal/sheet"
	"github.com/JonMunkholm/taxref/internal/tax"
	"github.com/JonMunkholm/taxref/internal/upload"
	"github.com/JonMunkholm/taxref/internal/validation"
	mw "github.com/JonMunkholm/taxref/internal/web/middleware"
)

const defaultShutdownTimeout = 30 * time.Second

// Deps are the services the handlers call.
type Deps struct {
	Tax     *tax.Service
	Engine  *validation.Engine
	Reader  *sheet.Reader
	Limiter *upload.Limiter
	DB      Pinger // optional; /readyz skips the ping when nil
}

// Server is the HTTP server for the API.
type Server struct {
	cfg     *config.Config
	tax     *tax.Service
	engine  *validation.Engine
	reader  *sheet.Reader
	limiter *upload.Limiter
	db      Pinger

	rate   *mw.RateLimiter
	router *chi.Mux
	server *http.Server
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:     cfg,
		tax:     deps.Tax,
		engine:  deps.Engine,
		reader:  deps.Reader,
		limiter: deps.Limiter,
		db:      deps.DB,
		router:  chi.NewRouter(),
	}
	if s.reader == nil {
		s.reader = sheet.NewReader(nil)
	}
	if s.limiter == nil {
		s.limiter = upload.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.RealIP(mw.ParseTrustedProxies(s.cfg.Server.TrustedProxies)))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: s.cfg.CORS.AllowCredentials,
		MaxAge:           s.cfg.CORS.MaxAge,
	}))

	if s.cfg.Rate.Enabled {
		s.rate = mw.NewRateLimiter(mw.RateLimitConfig{
			RequestsPerSecond: s.cfg.Rate.RequestsPerSecond,
			Burst:             s.cfg.Rate.Burst,
		})
		s.router.Use(s.rate.Handler)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)

	if s.tax != nil {
		s.router.Route("/tax", func(r chi.Router) {
			r.Post("/create", s.handleTaxCreate)
			r.Put("/update", s.handleTaxUpdate)
			r.Delete("/delete", s.handleTaxDelete)
			r.Get("/tax_code_rcd", s.handleTaxGet)
			r.Get("/dropdown", s.handleTaxDropdown)
			r.Get("/search", s.handleTaxSearch)
		})
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/validate/{rule_id}", s.handleValidate)
		r.Get("/rules", s.handleListRules)
		r.Get("/rules/{rule_id}", s.handleGetRule)
	})
}

// Start begins listening for HTTP requests. It returns nil once Shutdown has
// been called, possibly before Shutdown itself has returned.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until ctx is done, then shuts down: new uploads are turned away,
// in-flight validations drain, and open connections finish. It returns only
// after shutdown is complete, so the caller may release shared resources.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		s.limiter.Close()
		if s.rate != nil {
			s.rate.Stop()
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.limiter.Close()
	if active := s.limiter.ActiveCount(); active > 0 {
		slog.Info("waiting for uploads to complete", "active", active)
		if err := s.limiter.WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("uploads did not complete in time", "error", err)
		} else {
			slog.Info("all uploads completed")
		}
	}

	err := s.Shutdown(shutdownCtx)
	if startErr := <-errCh; err == nil {
		err = startErr
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rate != nil {
		s.rate.Stop()
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
