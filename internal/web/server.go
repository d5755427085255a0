// Package web provides the HTTP transport of the directory service: action
// routes answering the {success, message, data} envelope, the submission
// websocket feed, health and metrics.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/d21hq/d21/internal/auth"
	"github.com/d21hq/d21/internal/config"
	"github.com/d21hq/d21/internal/core"
	"github.com/d21hq/d21/internal/web/middleware"
)

// Options configures a Server. Zero values fall back to the config defaults.
type Options struct {
	Verifier   *auth.Verifier
	CookieName string
	Metrics    *Metrics
	Server     config.ServerConfig
	Rate       config.RateLimitConfig
	Security   config.SecurityConfig

	// Ready reports whether dependencies (database) are reachable; nil
	// means always ready.
	Ready func(context.Context) error
}

// Server is the HTTP server of the directory service.
type Server struct {
	service *core.Service
	opts    Options
	metrics *Metrics
	router  *chi.Mux
	server  *http.Server

	stop context.CancelFunc
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Server.MaxFormSize <= 0 {
		opts.Server.MaxFormSize = 10 << 20
	}
	if opts.Server.RequestTimeout <= 0 {
		opts.Server.RequestTimeout = 60 * time.Second
	}

	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		service: service,
		opts:    opts,
		metrics: opts.Metrics,
		router:  chi.NewRouter(),
		stop:    stop,
	}
	s.setupMiddleware(ctx)
	s.setupRoutes(ctx)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(ctx context.Context) {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.opts.Security.TrustedProxies))
	s.router.Use(middleware.RequestMetadata)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(s.metrics.Middleware)

	// Security hardening
	s.router.Use(securityHeaders(s.opts.Security.EnableCSP))

	if s.opts.Rate.Enabled && s.opts.Rate.RequestsPerMinute > 0 {
		limiter := newRateLimiter(s.opts.Rate.RequestsPerMinute, time.Minute)
		go limiter.runCleanup(ctx)
		s.router.Use(limiter.middleware(s))
	}

	if s.opts.Verifier != nil {
		s.router.Use(middleware.Session(s.opts.Verifier, s.opts.CookieName))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(ctx context.Context) {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, &core.ActionError{Kind: core.KindNotFound, Message: core.MsgInvalidRequest})
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondErrorStatus(w, r, badRequest(core.MsgInvalidRequest, errors.New("method not allowed")), http.StatusMethodNotAllowed)
	})

	var submissionLimit func(http.Handler) http.Handler
	if s.opts.Rate.Enabled && s.opts.Rate.SubmissionLimit > 0 {
		limiter := newRateLimiter(s.opts.Rate.SubmissionLimit, time.Minute)
		go limiter.runCleanup(ctx)
		submissionLimit = limiter.middleware(s)
	}

	s.router.Route("/api", func(r chi.Router) {
		// Long-lived; kept out of the request timeout and compression.
		r.Get("/directories/{slug}/submissions/ws", s.handleSubmissionFeed)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.opts.Server.RequestTimeout))
			r.Use(chimw.Compress(5))

			// Directories
			r.Get("/directories", s.handleListDirectories)
			r.Get("/directories/featured", s.handleFeaturedDirectories)
			r.Post("/directories", s.handleCreateDirectory)
			r.Get("/directories/{slug}", s.handleGetDirectory)
			r.Post("/directories/{slug}", s.handleUpdateDirectory)
			r.Delete("/directories/{slug}", s.handleDeleteDirectory)
			r.Get("/slug-available", s.handleSlugAvailable)
			r.Get("/me/directories", s.handleMyDirectories)

			// Startups within a directory
			r.Get("/directories/{slug}/startups", s.handleListStartups)
			r.Get("/directories/{slug}/startups/{startupSlug}", s.handleGetStartup)
			r.Get("/directories/{slug}/locations", s.handleStartupLocations)
			r.Get("/directories/{slug}/tags", s.handleDirectoryTags)
			r.With(optional(submissionLimit)).Post("/directories/{slug}/startups", s.handleCreateStartup)

			// Owner views
			r.Get("/directories/{slug}/submissions", s.handleSubmissions)
			r.Get("/directories/{slug}/audit", s.handleAuditLog)

			// Startup mutations
			r.Post("/startups/{id}", s.handleUpdateStartup)
			r.Post("/startups/{id}/visibility", s.handleStartupVisibility)
			r.Delete("/startups/{id}", s.handleDeleteStartup)

			// Reference data and helpers
			r.Get("/reference/team-sizes", s.handleTeamSizes)
			r.Get("/reference/funding-stages", s.handleFundingStages)
			r.Get("/geocode", s.handleGeocode)
			r.Post("/images/rehost", s.handleRehostImage)

			r.Get("/admin/tables", s.handleListTables)
		})
	})
}

// optional returns mw, or a pass-through when mw is nil.
func optional(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.Server.ReadTimeout,
		WriteTimeout: s.opts.Server.WriteTimeout, // 0 keeps websocket feeds open
		IdleTimeout:  s.opts.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background sweepers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
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
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' https: data:; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}
