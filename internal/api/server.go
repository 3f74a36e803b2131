// Package api provides the HTTP API server and handlers for the Buchregal server.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/buchregal/buchregal-server/internal/classify"
	"github.com/buchregal/buchregal-server/internal/http/response"
	"github.com/buchregal/buchregal-server/internal/ratelimit"
	"github.com/buchregal/buchregal-server/internal/store"
)

// Inbound rate limit per client address. Generous for interactive use,
// tight enough that a runaway script cannot hammer the batch endpoint.
const (
	requestsPerSecond = 20
	requestBurst      = 40
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    *store.Store
	services *Services
	engine   *classify.Engine
	router   *chi.Mux
	api      huma.API
	limiter  *ratelimit.KeyedLimiter
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, engine *classify.Engine, name, version string, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	limiter := ratelimit.New(requestsPerSecond, requestBurst)

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(rateLimitMiddleware(limiter, logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	humaConfig := huma.DefaultConfig(name, version)
	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:    st,
		services: services,
		engine:   engine,
		router:   router,
		api:      api,
		limiter:  limiter,
		logger:   logger,
	}

	// Health stays on the plain router so it works without content
	// negotiation.
	router.Get("/health", s.handleHealthCheck)

	s.registerClassifyRoutes()
	s.registerEnrichRoutes()
	s.registerCacheRoutes()
	s.registerMappingRoutes()
	s.registerGenreRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealthCheck returns server health status including the cache size.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountEnriched(r.Context())
	if err != nil {
		s.logger.Error("health check failed to read store", "error", err)
		response.InternalError(w, "Cache store unavailable", s.logger)
		return
	}

	response.Success(w, map[string]any{
		"status":       "healthy",
		"cached_books": count,
	}, s.logger)
}
