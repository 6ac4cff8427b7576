package server

import (
	"context"
	"fmt"
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mgriffes/jobforge/internal/config"
	"github.com/mgriffes/jobforge/internal/middlewares"
)

// RegisterHandlerFn attaches API routes to the /api/v1 group.
type RegisterHandlerFn func(router *gin.RouterGroup)

type Server struct {
	cfg    *config.Configuration
	engine *gin.Engine
	srv    *http.Server
}

// NewServer builds the gin engine with the logging and recovery
// middleware installed and hands the /api/v1 group to registerFn.
func NewServer(cfg *config.Configuration, registerFn RegisterHandlerFn) (*Server, error) {
	if cfg.Server.Mode == config.ModeProd {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(
		middlewares.Logger(),
		ginzap.RecoveryWithZap(zap.L().Named("http"), true),
	)

	apiGroup := engine.Group("/api/v1")
	registerFn(apiGroup)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return &Server{
		cfg:    cfg,
		engine: engine,
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
			Handler: engine,
		},
	}, nil
}

// Start runs the HTTP server. It blocks until the listener fails or
// Stop is called, in which case it returns http.ErrServerClosed.
func (s *Server) Start(ctx context.Context) error {
	zap.S().Named("server").Infow("starting http server",
		"addr", s.srv.Addr,
		"mode", s.cfg.Server.Mode,
	)
	return s.srv.ListenAndServe()
}

// Stop shuts the server down gracefully, waiting for in-flight
// requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	zap.S().Named("server").Infow("stopping http server")
	return s.srv.Shutdown(ctx)
}
