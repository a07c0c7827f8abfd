// Package web serves the labelbook HTTP API.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/labelbook/internal/config"
	"github.com/JonMunkholm/labelbook/internal/core"
	"github.com/JonMunkholm/labelbook/internal/web/middleware"
)

// Server is the HTTP server for export and import runs.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server. Rate limiter housekeeping stops when ctx is
// done.
func NewServer(ctx context.Context, service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes(ctx)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes. Run endpoints skip the request
// timeout: exports stream a workbook and progress is a long-lived stream.
func (s *Server) setupRoutes(ctx context.Context) {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security))
		if s.cfg.Rate.Enabled {
			r.Use(middleware.NewRateLimiter(ctx, s.cfg.Rate.RequestsPerMinute).Handler)
		}

		r.Group(func(r chi.Router) {
			if s.cfg.Server.RequestTimeout > 0 {
				r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
			}
			r.Get("/languages", s.handleLanguages)
			r.Get("/entities", s.handleEntities)
			r.Get("/sheets", s.handleSheets)
			r.Get("/runs", s.handleRuns)
			r.Get("/runs/{runID}", s.handleRun)
			r.Get("/runs/{runID}/workbook", s.handleArchivedWorkbook)
			r.Get("/import/{runID}/result", s.handleImportResult)
			r.Post("/import/{runID}/cancel", s.handleCancelImport)
		})

		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(middleware.NewRateLimiter(ctx, s.cfg.Rate.RunLimit).Handler)
			}
			r.Post("/export", s.handleExport)
			r.Post("/import", s.handleImport)
			r.Post("/preview", s.handlePreview)
		})

		r.Get("/import/{runID}/progress", s.handleImportProgress)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
