// Package api exposes the catalog over HTTP. JSON operations register
// through huma for typed inputs and generated OpenAPI; the cover and
// file routes use chi directly for streaming.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/raindrop213/bibi-library/internal/config"
	"github.com/raindrop213/bibi-library/internal/logger"
	"github.com/raindrop213/bibi-library/internal/media/thumbs"
	"github.com/raindrop213/bibi-library/internal/ratelimit"
	"github.com/raindrop213/bibi-library/internal/service"
)

// Server owns the router, the huma API and the http.Server lifecycle.
type Server struct {
	config  *config.Config
	log     *logger.Logger
	catalog *service.CatalogService
	thumbs  *thumbs.Cache
	router  chi.Router
	api     huma.API
	httpSrv *http.Server

	// purgeLimiter throttles the admin purge endpoint per remote host.
	purgeLimiter *ratelimit.KeyedRateLimiter
}

// New builds the server and mounts every route.
func New(cfg *config.Config, log *logger.Logger, catalog *service.CatalogService, cache *thumbs.Cache) *Server {
	// No RealIP middleware: the purge route trusts RemoteAddr for its
	// loopback check, so forwarded headers must not rewrite it.
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	if cfg.Server.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", accessKeyHeader},
			MaxAge:         300,
		}))
	}

	humaConfig := huma.DefaultConfig("Bibi Library API", "1.0.0")
	humaConfig.DocsPath = "/docs"
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	api := humachi.New(r, humaConfig)

	s := &Server{
		config:       cfg,
		log:          log,
		catalog:      catalog,
		thumbs:       cache,
		router:       r,
		api:          api,
		purgeLimiter: ratelimit.New(1, 3),
	}

	s.registerBookRoutes()
	s.registerCategoryRoutes()
	s.registerAdminRoutes()
	s.registerAssetRoutes()
	s.registerHealthRoute()

	s.httpSrv = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	return s.httpSrv.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
