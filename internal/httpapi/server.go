// Package httpapi provides the HTTP API for fusiond.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fusiond/internal/collector"
	"github.com/fyrsmithlabs/fusiond/internal/fusion"
	"github.com/fyrsmithlabs/fusiond/internal/processor"
	"github.com/fyrsmithlabs/fusiond/internal/storage"
)

// Server exposes feedback collection and fusion over HTTP.
type Server struct {
	echo      *echo.Echo
	logger    *zap.Logger
	config    *Config
	store     storage.Store
	collector *collector.Collector
	processor *processor.Processor
	engine    *fusion.Engine
	metrics   *Metrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates the HTTP server.
func NewServer(store storage.Store, col *collector.Collector, proc *processor.Processor, engine *fusion.Engine, logger *zap.Logger, cfg *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if col == nil {
		return nil, fmt.Errorf("collector cannot be nil")
	}
	if proc == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 9141}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := NewMetrics(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metrics.Middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:      e,
		logger:    logger,
		config:    cfg,
		store:     store,
		collector: col,
		processor: proc,
		engine:    engine,
		metrics:   metrics,
	}
	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/feedback", s.handleSubmitFeedback)
	v1.GET("/feedback", s.handleListFeedback)
	v1.GET("/feedback/:id", s.handleGetFeedback)
	v1.DELETE("/feedback/:id", s.handleDeleteFeedback)
	v1.POST("/fuse", s.handleFuse)
	v1.POST("/analyze", s.handleAnalyze)
	v1.GET("/strategies/performance", s.handleStrategyPerformance)
	v1.POST("/strategies/recommend", s.handleStrategyRecommend)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Items  int    `json:"items"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	n, err := s.store.Count(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable")
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Items: n})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
