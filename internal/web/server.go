// Package web serves the import API and the review page.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/eventimport/internal/config"
	"github.com/JonMunkholm/eventimport/internal/core"
	mw "github.com/JonMunkholm/eventimport/internal/web/middleware"
)

// Pinger reports whether the event store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP front of the import service.
type Server struct {
	service *core.Service
	store   Pinger
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	limiter       *rateLimiter
	uploadLimiter *rateLimiter
}

// NewServer builds the router. store is only used by the health check and
// may be nil.
func NewServer(service *core.Service, store Pinger, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		store:   store,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.limiter = newRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute)
		s.uploadLimiter = newRateLimiter(cfg.Rate.UploadLimit, time.Minute)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
	if s.limiter != nil {
		s.router.Use(s.limiter.middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	// Pages
	s.router.Get("/imports/{importID}", s.handleReviewPage)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))
		r.Use(middleware.AllowContentType("application/json", "multipart/form-data"))

		r.Post("/events", s.handleCreateEvent)
		r.Get("/events/{eventID}", s.handleGetEvent)
		r.Get("/events/{eventID}/imports", s.handleListImports)
		r.With(s.uploadLimit).Post("/events/{eventID}/imports", s.handleStartImport)

		r.Route("/imports/{importID}", func(r chi.Router) {
			r.Get("/", s.handleGetImport)
			r.Delete("/", s.handleCancelImport)
			r.Post("/rows", s.handleAddRow)
			r.Patch("/rows/{rowID}", s.handleEditRow)
			r.Delete("/rows/{rowID}", s.handleRemoveRow)
			r.With(s.uploadLimit).Post("/commit", s.handleCommit)
		})
	})
}

// uploadLimit applies the stricter per-IP budget to uploads and commits.
func (s *Server) uploadLimit(next http.Handler) http.Handler {
	if s.uploadLimiter == nil {
		return next
	}
	return s.uploadLimiter.middleware(next)
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and the limiter janitors.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	if s.uploadLimiter != nil {
		s.uploadLimiter.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds hardening headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				// The review page only uses inline styles.
				w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v with the given status. Encoding errors are only logged
// since the header is already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "path", r.URL.Path, "error", err,
			"request_id", middleware.GetReqID(r.Context()))
	}
}
