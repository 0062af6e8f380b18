package server

import (
	"context"
	"time"

	"mailtriage/internal/config"
	"mailtriage/internal/handlers"
	"mailtriage/internal/store"
	"mailtriage/internal/triage"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server represents the application server
type Server struct {
	echo    *echo.Echo
	store   store.Store
	triage  *triage.Service
	polling handlers.PollingControl
	config  *config.Config
	logger  zerolog.Logger
}

// New creates a new server instance
func New(cfg *config.Config, st store.Store, svc *triage.Service, polling handlers.PollingControl, logger zerolog.Logger) *Server {
	return &Server{
		config:  cfg,
		store:   st,
		triage:  svc,
		polling: polling,
		logger:  logger,
	}
}

// zerologMiddleware creates a zerolog-based logging middleware for Echo
func (s *Server) zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			s.logger.Info().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Str("user_agent", req.UserAgent()).
				Msg("HTTP request")

			return err
		}
	}
}

// Initialize sets up the Echo framework with middleware and routes
func (s *Server) Initialize() {
	s.echo = echo.New()

	// Middleware
	s.echo.Use(s.zerologMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	// Hide Echo banner
	s.echo.HideBanner = true

	// Setup routes
	s.setupRoutes()
}

// setupRoutes configures all the application routes
func (s *Server) setupRoutes() {
	// Health and metrics endpoints (keep at root level for monitoring)
	s.echo.GET("/healthz", handlers.HealthHandler(s.config.Version))
	s.echo.GET("/healthz/db", handlers.DBHealthHandler(s.store))
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API group with /api prefix
	api := s.echo.Group("/api")
	api.GET("/", handlers.RootHandler(s.config.Version))

	api.GET("/emails", handlers.ListEmailsHandler(s.triage, s.polling, s.logger))
	api.POST("/emails", handlers.SubmitEmailHandler(s.triage, s.logger))
	api.GET("/emails/:id", handlers.GetEmailHandler(s.triage))
	api.POST("/emails/:id/status", handlers.UpdateStatusHandler(s.triage))
	api.POST("/emails/:id/category", handlers.ReassignCategoryHandler(s.triage))
	api.POST("/emails/:id/draft", handlers.DraftResponseHandler(s.triage, s.logger))
	api.POST("/emails/:id/responses", handlers.ManualResponseHandler(s.triage))

	api.GET("/polling", handlers.GetPollingHandler(s.polling))
	api.POST("/polling", handlers.SetPollingHandler(s.polling))

	api.GET("/weekly-report", handlers.WeeklyReportHandler(s.triage, s.logger))
	api.GET("/response-stats", handlers.ResponseStatsHandler(s.triage, s.logger))
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Port).Msg("Server starting")
	return s.echo.Start(":" + s.config.Port)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
