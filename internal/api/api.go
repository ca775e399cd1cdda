package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	api_utils "github.com/ethanbaker/api/pkg/utils"
	"github.com/ethanbaker/callsim/internal/api/middleware"
	"github.com/ethanbaker/callsim/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	health_module "github.com/ethanbaker/callsim/internal/api/modules/health"
	sessions_module "github.com/ethanbaker/callsim/internal/api/modules/sessions"
	transcribe_module "github.com/ethanbaker/callsim/internal/api/modules/transcribe"
	turns_module "github.com/ethanbaker/callsim/internal/api/modules/turns"
)

// Start builds every backend from the config and serves the API until the server fails
func Start(ctx context.Context, cfg *utils.Config) error {
	logger := utils.NewLogger(cfg)
	log := utils.Component(logger, "api-main")

	services, err := NewServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer services.Close()

	if !cfg.GetBool("API_DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	engine, err := NewEngine(cfg, services, logger)
	if err != nil {
		return err
	}

	// Initialized configuration settings
	port := cfg.GetWithDefault("API_PORT", "8080")

	log.WithField("port", port).Info("starting server")
	if err := engine.Run(":" + port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// NewEngine creates the gin engine with all modules registered
func NewEngine(cfg *utils.Config, services *Services, logger logrus.FieldLogger) (*gin.Engine, error) {
	apiKey, err := middleware.APIKey(cfg)
	if err != nil {
		return nil, err
	}

	// Add app level settings/routes
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.Logger(logger))
	engine.NoRoute(api_utils.NoRouteHandler)

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.GetWithDefault("CORS_ALLOWED_ORIGINS", "*"), ","),
		AllowMethods:     []string{"OPTIONS", "GET", "POST", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-KEY", middleware.OwnerHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")
	health_module.RegisterRoutes(baseGroup)

	// Everything else needs an API key and an owner
	owned := baseGroup.Group("")
	owned.Handlers = append(owned.Handlers, apiKey, middleware.Owner())

	sessions_module.RegisterRoutes(owned, services.Sessions)
	transcribe_module.RegisterRoutes(owned, services.Transcriber, services.Timeout)
	turns_module.RegisterRoutes(owned, services.Pipeline, logger)

	return engine, nil
}
