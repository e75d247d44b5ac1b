// Package web provides the HTTP server and handlers for the Data Sweeper UI.
package web

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/datasweeper/internal/config"
	"github.com/JonMunkholm/datasweeper/internal/metrics"
	"github.com/JonMunkholm/datasweeper/internal/session"
	webmw "github.com/JonMunkholm/datasweeper/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server for the sweeper application.
type Server struct {
	cfg      *config.Config
	sessions *session.Store
	limiter  *session.Limiter
	metrics  *metrics.Metrics
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, sessions *session.Store, limiter *session.Limiter, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		limiter:  limiter,
		metrics:  m,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(webmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/healthz", s.handleHealth)
	if s.cfg.Metrics.Enabled && s.metrics != nil {
		s.router.With(webmw.BearerAuth(s.cfg.Metrics.Tokens)).Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}

	general := s.rateLimit(s.cfg.Rate.RequestsPerMinute)
	uploads := s.rateLimit(s.cfg.Rate.UploadLimit)

	// Pages
	s.router.Group(func(r chi.Router) {
		r.Use(general, s.withSession)

		r.Get("/", s.handleIndex)
		r.With(uploads).Post("/upload", s.handleUpload)
		r.Post("/reset", s.handleReset)

		r.Route("/files/{fileID}", func(r chi.Router) {
			r.Post("/clean", s.handleClean)
			r.Post("/columns", s.handleColumns)
			r.Post("/chart", s.handleChart)
			r.Post("/remove", s.handleRemove)
			r.Get("/download", s.handleDownload)
		})
	})

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Use(general)

		r.Group(func(r chi.Router) {
			r.Use(s.withSession)
			r.Get("/files", s.handleListFiles)
			r.Get("/files/{fileID}", s.handleGetFile)
			r.Get("/files/{fileID}/chart", s.handleGetChart)
		})

		// Stateless one-shot conversion
		r.With(uploads).Post("/convert", s.handleConvert)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
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
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			// Content Security Policy. No scripts or inline styles are served.
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; style-src 'self'; img-src 'self' data:; form-action 'self'")
			}

			// Control referrer information
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}
