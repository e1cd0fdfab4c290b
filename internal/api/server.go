// Package api exposes the phenotype mapping engine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oncosaferx/phenotype-server/internal/database"
	"github.com/oncosaferx/phenotype-server/internal/domain"
	"github.com/oncosaferx/phenotype-server/internal/guidelines"
	"github.com/oncosaferx/phenotype-server/internal/history"
	"github.com/oncosaferx/phenotype-server/internal/middleware"
	"github.com/oncosaferx/phenotype-server/internal/phenotype"
	"github.com/oncosaferx/phenotype-server/internal/repository"
	"github.com/oncosaferx/phenotype-server/pkg/external"
)

// Dependencies carries the services the HTTP server exposes.
// Reports, Reviews, DB and External are optional; nil disables the
// corresponding endpoints or health probes.
type Dependencies struct {
	Engine     *phenotype.Engine
	Guidelines *guidelines.Service
	Reports    *repository.ReportRepository
	Reviews    history.Store
	DB         *database.DB
	External   *external.ResilientClient
}

// Server represents the HTTP server
type Server struct {
	cfg    *domain.Config
	log    *logrus.Logger
	router *gin.Engine
	server *http.Server
	deps   Dependencies
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *domain.Config, deps Dependencies, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	requestTimeout := cfg.Server.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}

	// Add middleware
	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestTimeout(requestTimeout))
	router.Use(corsMiddleware())

	server := &Server{
		cfg:    cfg,
		log:    logger,
		router: router,
		deps:   deps,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	cfg := s.cfg.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.log.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the gin engine, used by tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/phenotypes", s.handleMapPhenotypes)
		v1.POST("/hla", s.handleDetectHLA)
		v1.GET("/genes", s.handleListGenes)
		v1.GET("/guidelines", s.handleListGuidelines)
		v1.GET("/guidelines/:gene", s.handleGuidelinesForGene)
		v1.GET("/guidelines/:gene/:phenotype", s.handleGuidelineLookup)

		if s.deps.External != nil {
			v1.GET("/drugs/:name", s.handleNormalizeDrug)
		}

		if s.deps.Reports != nil {
			v1.GET("/reports", s.handleListReports)
			v1.GET("/reports/:id", s.handleGetReport)
		}

		if s.deps.Reviews != nil {
			v1.POST("/reviews", s.handleSaveReview)
			v1.GET("/reviews", s.handleListReviews)
		}
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	checks := gin.H{}

	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.DB.Health(ctx); err != nil {
			status = "degraded"
			checks["database"] = err.Error()
		} else {
			checks["database"] = "ok"
		}
	}

	if s.deps.External != nil {
		checks["breakers"] = s.deps.External.BreakerStates()
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
		"checks":    checks,
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-API-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
