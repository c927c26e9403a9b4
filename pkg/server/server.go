// Package server exposes the annotated dataset over a read-only REST API,
// mainly for eyeballing results after a pipeline run.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundprediction/go-chatforge/pkg/config"
	"github.com/soundprediction/go-chatforge/pkg/dataset"
	"github.com/soundprediction/go-chatforge/pkg/server/handlers"
)

// Server is the HTTP server over one loaded dataset.
type Server struct {
	cfg    *config.ServerConfig
	engine *gin.Engine
	http   *http.Server
	logger *slog.Logger
}

// New creates a server over the given records.
func New(cfg *config.ServerConfig, records []dataset.Record, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(cfg.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		cfg:    cfg,
		engine: engine,
		logger: logger,
	}
	s.setup(records)
	return s
}

func (s *Server) setup(records []dataset.Record) {
	health := handlers.NewHealthHandler()
	recs := handlers.NewRecordsHandler(records)

	s.engine.GET("/health", health.HealthCheck)

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/records", recs.List)
		v1.GET("/records/:id", recs.Get)
		v1.GET("/stats", recs.Stats)
	}
}

// Engine returns the underlying gin engine, used by tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start runs the server until Shutdown or a listener error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	s.logger.Info("serving dataset", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// requestLogger tags every request with an id and logs its outcome.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()[:8]
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		logger.Info("request",
			"id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
