// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"cuepoint/internal/api"
	"cuepoint/internal/config"
	"cuepoint/internal/coordinator"
	"cuepoint/internal/db"
	"cuepoint/internal/logger"
	"cuepoint/internal/metrics"
	"cuepoint/internal/middleware"
	"cuepoint/internal/presentation"
	"cuepoint/internal/schedule"
	"cuepoint/internal/stitch"
	"cuepoint/internal/vast"
)

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	db          *db.DB
	repos       *db.Repositories
	hub         *presentation.Hub
	metrics     *metrics.Metrics
	coordinator *coordinator.Coordinator
	router      *gin.Engine
	server      *http.Server
}

// New creates a new server instance and wires the playback stack
func New(cfg *config.Config, database *db.DB) *Server {
	repos := db.NewRepositories(database)
	hub := presentation.NewHub()
	m := metrics.New()

	scheduleClient := schedule.NewClient(cfg.AdServer.ScheduleURL, cfg.AdServer.ScheduleInterval, cfg.AdServer.RequestTimeout)
	builder := schedule.NewBuilder(cfg.AdServer.DefaultBreakDuration, cfg.AdServer.DefaultSkipOffset)
	resolver := vast.NewResolver(cfg.AdServer.RequestTimeout, cfg.AdServer.DefaultBreakDuration, cfg.AdServer.DefaultSkipOffset)
	probe := stitch.NewProbe(cfg.AdServer.RequestTimeout)

	coord := coordinator.NewCoordinator(repos, scheduleClient, builder, resolver, probe, hub, m, &cfg.Playback)

	return &Server{
		config:      cfg,
		db:          database,
		repos:       repos,
		hub:         hub,
		metrics:     m,
		coordinator: coord,
	}
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	// Set Gin mode based on log level
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	// Middleware stack
	s.router.Use(middleware.RequestLogger()) // Custom zerolog request logger
	s.router.Use(gin.Recovery())             // Panic recovery
	s.router.Use(cors.Default())             // CORS support (allows all origins)

	apiGroup := s.router.Group("/api")

	api.SetupHealthRoutes(apiGroup, s.db)
	api.SetupSessionRoutes(apiGroup, s.coordinator, s.hub)

	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler(func() {
		s.metrics.SetActiveSessions(s.coordinator.SessionCount())
	})))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.setupRouter()

	// Start the session coordinator's cleanup loop
	if err := s.coordinator.Start(); err != nil {
		return fmt.Errorf("failed to start session coordinator: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	logger.Log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Msg("Starting HTTP server")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().Msg("Shutting down server gracefully")

	// Unload live sessions and stop the cleanup loop
	if s.coordinator != nil {
		s.coordinator.Stop()
	}

	// Check if server was started before attempting shutdown
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	logger.Log.Info().Msg("Server stopped")
	return nil
}
