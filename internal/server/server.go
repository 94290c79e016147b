// Package server exposes the catalog viewer over HTTP: the server-rendered
// viewer, a JSON API over the same engine and the operational endpoints.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Sternrassler/catalog-viewer/internal/app"
	"github.com/Sternrassler/catalog-viewer/pkg/logging"
	"github.com/Sternrassler/catalog-viewer/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Options configures the HTTP surface.
type Options struct {
	// CORSOrigins allowed to call the JSON API
	CORSOrigins []string

	// SecureCookies marks the session cookie Secure
	SecureCookies bool

	// Ping checks backing services for /ready; nil skips the check
	Ping func(ctx context.Context) error

	// AdminToken guards the admin routes as a bearer token; empty disables them
	AdminToken string
}

// Server holds the HTTP server dependencies.
type Server struct {
	app    *app.App
	opts   Options
	router chi.Router
	logger zerolog.Logger
}

// New creates the HTTP server for a.
func New(a *app.App, opts Options) *Server {
	s := &Server{
		app:    a,
		opts:   opts,
		router: chi.NewRouter(),
		logger: logging.NewLogger("server"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	// Viewer
	s.router.With(s.withSession).Get("/", s.handleIndex)
	s.router.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Post("/search", s.handleSearch)
		r.Post("/reset", s.handleReset)
		r.Post("/page/prev", s.handlePrevPage)
		r.Post("/page/next", s.handleNextPage)
		r.Post("/entities/{id}/open", s.handleOpenDetail)
		r.Post("/detail/close", s.handleCloseDetail)
	})

	// JSON API
	s.router.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/categories", s.handleGetCategories)
		r.Get("/entities", s.handleGetEntities)
		r.Get("/entities/{id}", s.handleGetEntity)
	})

	// Operations
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ready", s.handleReady)
	s.router.Handle("/metrics", metrics.Handler())

	// Admin
	if s.opts.AdminToken != "" {
		s.router.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/reload", s.handleReload)
		})
	}
}

// requireAdmin rejects requests without the configured bearer token.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	want := []byte("Bearer " + s.opts.AdminToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			s.logger.Warn().
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Msg("Admin request rejected")
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs every request through zerolog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		event := s.logger.Debug()
		if status >= http.StatusInternalServerError {
			event = s.logger.Warn()
		}
		event.
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// --- Response helpers ---

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
