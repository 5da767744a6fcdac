// Package api wires the HTTP surface: server setup, middleware, and
// route registration for every feature area.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/reelmates/reelmates/internal/auth"
	"github.com/reelmates/reelmates/internal/catalog/omdb"
	"github.com/reelmates/reelmates/internal/catalog/tmdb"
	"github.com/reelmates/reelmates/internal/compare"
	"github.com/reelmates/reelmates/internal/config"
	"github.com/reelmates/reelmates/internal/database"
	"github.com/reelmates/reelmates/internal/discovery"
	"github.com/reelmates/reelmates/internal/users"
	"github.com/reelmates/reelmates/internal/watched"
)

// Server handles HTTP requests for the ReelMates API.
type Server struct {
	echo   *echo.Echo
	db     *database.DB
	logger zerolog.Logger
	cfg    *config.Config

	authService      *auth.Service
	userService      *users.Service
	watchedService   *watched.Service
	discoveryService *discovery.Service
	compareService   *compare.Service
	enricher         *discovery.Enricher
}

// NewServer creates a new API server instance.
func NewServer(db *database.DB, cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		db:     db,
		logger: logger,
		cfg:    cfg,
	}

	authService, err := auth.NewService(db, cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}
	s.authService = authService

	s.userService = users.NewService(users.NewStore(db.Conn()), logger)
	s.watchedService = watched.NewService(watched.NewStore(db.Conn()), logger)

	tmdbClient := tmdb.NewClient(cfg.Catalog.TMDB, logger)
	omdbClient := omdb.NewClient(cfg.Catalog.OMDB, logger)

	cache := discovery.NewCache(discovery.DefaultCacheConfig())
	s.enricher = discovery.NewEnricher(tmdbClient, omdbClient, cache,
		cfg.Catalog.Region, cfg.Discovery.EnrichBatchSize, logger)

	s.discoveryService = discovery.NewService(tmdbClient, tmdbClient, s.enricher, cache,
		s.watchedService, cfg.Discovery, cfg.Catalog.Region, logger)
	s.compareService = compare.NewService(tmdbClient, s.userService, s.watchedService,
		cfg.Discovery, cfg.Catalog.Region, logger)

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.BodyLimit("1M"))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api/v1")

	userHandlers := users.NewHandlers(s.userService, s.authService, s.logger)
	userHandlers.RegisterPublicRoutes(api)

	authMiddleware := auth.NewMiddleware(s.authService)
	protected := api.Group("", authMiddleware.Require())

	userHandlers.RegisterRoutes(protected)
	watched.NewHandlers(s.watchedService, s.logger).RegisterRoutes(protected)
	discovery.NewHandlers(s.discoveryService, s.userService, s.logger).RegisterRoutes(protected)
	compare.NewHandlers(s.compareService, s.enricher, s.logger).RegisterRoutes(protected)
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Discovery returns the discovery service, used to wire background
// refresh jobs.
func (s *Server) Discovery() *discovery.Service {
	return s.discoveryService
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
