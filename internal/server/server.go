// Package server exposes the career navigator over HTTP. It is a thin gin
// layer over the resolution chain, the recommendation engine and the AI
// advisor; all domain decisions live in those packages.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/polarisnav/polaris/internal/ai"
	"github.com/polarisnav/polaris/internal/catalog"
	"github.com/polarisnav/polaris/internal/recommend"
	"github.com/polarisnav/polaris/internal/resolve"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultPort         = 5000
	defaultRateLimitRPS = 10

	shutdownTimeout = 10 * time.Second
)

// Config carries the HTTP layer settings.
type Config struct {
	Port         int
	CORSOrigins  []string
	RateLimitRPS int
}

// Deps aggregates the collaborators the handlers need. Advisor may be nil
// when AI is disabled; the endpoints that need it answer 503.
type Deps struct {
	Catalog  *catalog.Catalog
	Index    *catalog.Index
	Engine   *recommend.Engine
	Resolver *resolve.Chain
	Advisor  ai.ContentGenerator
	Logger   *zap.Logger
}

// Server is the HTTP front of the navigator.
type Server struct {
	cfg    Config
	deps   Deps
	router *gin.Engine
}

// New builds the router with its middleware and routes. It does not start
// listening; call Run for that.
func New(cfg Config, deps Deps) *Server {
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = defaultRateLimitRPS
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &Server{cfg: cfg, deps: deps}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.deps.Logger))

	corsConfig := cors.DefaultConfig()
	if len(s.cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = s.cfg.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", s.health)
	router.GET("/health/detailed", s.healthDetailed)

	api := router.Group("/api", newRateLimiter(s.cfg.RateLimitRPS).middleware())
	{
		api.POST("/infer-industry", s.inferIndustry)
		api.POST("/map/roles", s.mapRoles)
		api.POST("/role/:name/pages", s.rolePages)
		api.POST("/suggest-skills", s.suggestSkills)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("http server listening", zap.Int("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.deps.Logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	return <-errCh
}
