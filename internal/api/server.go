// Package api provides the HTTP API server and handlers for BestReads.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bestreads/bestreads-server/internal/metrics"
	"github.com/bestreads/bestreads-server/internal/ratelimit"
	"github.com/bestreads/bestreads-server/internal/sse"
	"github.com/bestreads/bestreads-server/internal/store"
)

// Options carries the optional pieces of the server.
type Options struct {
	// AllowedOrigins for CORS. Empty disables the CORS middleware.
	AllowedOrigins []string
	// Metrics records HTTP traffic when set.
	Metrics *metrics.Collector
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
	// AuthRateLimiter throttles register and login by client IP when set.
	AuthRateLimiter *ratelimit.KeyedRateLimiter
	// AccessLog enables chi's request logger.
	AccessLog bool
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           *store.Store
	services        *Services
	sseManager      *sse.Manager
	sseHandler      *sse.Handler
	authRateLimiter *ratelimit.KeyedRateLimiter
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
}

// NewServer creates the HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, sseManager *sse.Manager, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		store:           st,
		services:        services,
		sseManager:      sseManager,
		authRateLimiter: opts.AuthRateLimiter,
		router:          chi.NewRouter(),
		logger:          logger,
	}
	s.sseHandler = sse.NewHandler(sseManager, logger, currentUserID)

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("BestReads API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()
	s.api.UseMiddleware(s.rateLimitAuth)

	s.registerRoutes(opts)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	if opts.AccessLog {
		s.router.Use(middleware.Logger)
	}
	s.router.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		s.router.Use(opts.Metrics.Middleware)
	}
	if len(opts.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Last-Event-ID"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	s.router.Use(authMiddleware(s.services.Auth))
}

func (s *Server) registerRoutes(opts Options) {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()
	s.registerShelfRoutes()
	s.registerProgressRoutes()
	s.registerBookRoutes()
	s.registerReviewRoutes()
	s.registerActivityRoutes()

	// The stream is plain chi: huma does not model long-lived responses.
	s.router.Get("/api/v1/activities/stream", s.sseHandler.ServeHTTP)

	if opts.Gatherer != nil {
		s.router.Handle("/metrics", metrics.Handler(opts.Gatherer))
	}
}
