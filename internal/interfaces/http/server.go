// internal/interfaces/http/server.go
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/product"
	"github.com/your-org/storefront-api/internal/domain/user"
	redisinfra "github.com/your-org/storefront-api/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-api/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-api/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-api/internal/interfaces/http/routes"
	"github.com/your-org/storefront-api/internal/interfaces/http/validation"
)

const maxRequestBody = 1 << 20

// Services are the domain services exposed over HTTP
type Services struct {
	Users    *user.Service
	Products *product.Service
	Carts    *cart.Service
	Orders   *order.Service
}

// HealthCheck reports whether a backing store is reachable
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	log         logrus.FieldLogger
	gin         *gin.Engine
	httpServer  *http.Server
	cache       *redisinfra.Client
	dbHealth    HealthCheck
	startedAt   time.Time
}

// NewServer creates a new HTTP server instance. cache may be nil, in which
// case rate limiting is off.
func NewServer(cfg *config.Config, log logrus.FieldLogger, services Services, dbHealth HealthCheck, cache *redisinfra.Client) *Server {
	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	validation.Setup()

	s := &Server{
		config:      cfg,
		log:         log,
		gin:         gin.New(),
		cache:       cache,
		dbHealth:    dbHealth,
		startedAt:   time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes(routes.Handlers{
		Auth:    handlers.NewAuthHandler(services.Users),
		Product: handlers.NewProductHandler(services.Products),
		Cart:    handlers.NewCartHandler(services.Carts),
		Order:   handlers.NewOrderHandler(services.Orders),
	})

	return s
}

// Engine exposes the router, mainly for httptest
func (s *Server) Engine() *gin.Engine {
	return s.gin
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.gin,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.log.Infof("🚀 HTTP Server starting on port %s", s.config.Server.Port)
	s.log.Infof("🌐 API Base URL: http://localhost:%s/api", s.config.Server.Port)
	s.log.Infof("📊 Health Check: http://localhost:%s/health", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.log.Info("🛑 Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.log.Info("✅ HTTP server stopped gracefully")
	return nil
}

// setupMiddleware configures all middleware for the server
func (s *Server) setupMiddleware() {
	var counter middleware.WindowCounter
	if s.cache != nil {
		counter = s.cache
	}

	s.gin.Use(middleware.RequestID())
	s.gin.Use(middleware.Logger(s.log))
	s.gin.Use(middleware.ErrorHandler(s.config, s.log))
	s.gin.Use(middleware.CORS(s.config))
	s.gin.Use(middleware.SecurityHeaders())
	s.gin.Use(middleware.RateLimit(s.config, counter, s.log))
	s.gin.Use(middleware.RequestSizeLimit(maxRequestBody))
	s.gin.Use(middleware.Timeout(s.config.Server.RequestTimeout))
}

// setupRoutes mounts the API under /api and again at the root
func (s *Server) setupRoutes(h routes.Handlers) {
	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/", s.welcome)

	routes.SetupRoutes(s.gin.Group("/api"), h, s.config)
	routes.SetupRoutes(s.gin.Group(""), h, s.config)

	s.gin.NoRoute(middleware.NotFound())
}

func (s *Server) welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message":     "Welcome to the " + s.config.App.Name,
			"version":     s.config.App.Version,
			"environment": s.config.App.Environment,
			"health":      "/health",
			"endpoints": gin.H{
				"auth":     "/api/auth",
				"products": "/api/products",
				"cart":     "/api/cart",
				"orders":   "/api/orders",
			},
		},
	})
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{"database": "up", "redis": "disabled"}
	healthy := true

	if s.dbHealth != nil {
		if err := s.dbHealth(ctx); err != nil {
			s.log.WithError(err).Warn("database health check failed")
			checks["database"] = "down"
			healthy = false
		}
	}

	if s.cache != nil {
		checks["redis"] = "up"
		if err := s.cache.Health(ctx); err != nil {
			s.log.WithError(err).Warn("redis health check failed")
			checks["redis"] = "down"
			healthy = false
		}
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"success": healthy,
		"data": gin.H{
			"status":      status,
			"checks":      checks,
			"timestamp":   time.Now().UTC(),
			"uptime":      time.Since(s.startedAt).Round(time.Second).String(),
			"version":     s.config.App.Version,
			"environment": s.config.App.Environment,
		},
	})
}
