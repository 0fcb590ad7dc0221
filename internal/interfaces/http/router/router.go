package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/solarops/backend/internal/infrastructure/auth"
	"github.com/solarops/backend/internal/infrastructure/config"
	"github.com/solarops/backend/internal/infrastructure/logger"
	"github.com/solarops/backend/internal/interfaces/http/handler"
	"github.com/solarops/backend/internal/interfaces/http/middleware"
)

// Dependencies carries everything the router needs.
type Dependencies struct {
	Config     *config.Config
	Logger     *zap.Logger
	JWTService *auth.JWTService

	AuthHandler   *handler.AuthHandler
	SyncHandler   *handler.SyncHandler
	SystemHandler *handler.SystemHandler
}

// New assembles the gin engine: middleware chain, public endpoints, and
// the JWT-protected API group.
func New(deps Dependencies) *gin.Engine {
	if deps.Config.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(deps.Config.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(deps.Config.HTTP.TrustedProxies)
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(deps.Logger))
	engine.Use(logger.Recovery(deps.Logger))
	if deps.Config.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(deps.Config.Telemetry.ServiceName))
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = deps.Config.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsConfig))

	if deps.Config.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(deps.Config.HTTP.MaxBodySize))
	}

	// Public endpoints
	engine.GET("/healthz", deps.SystemHandler.Healthz)
	engine.GET("/readyz", deps.SystemHandler.Readyz)
	engine.POST("/api/v1/auth/login", deps.AuthHandler.Login)

	// Migrated files are served straight off disk when the local
	// backend is active; with S3 the bucket serves them itself.
	if deps.Config.Storage.Backend != "s3" {
		engine.Static(deps.Config.Files.PublicPath, deps.Config.Files.Root)
	}

	// Operator API
	api := engine.Group("/api/v1")
	api.Use(middleware.JWTAuth(deps.JWTService))
	{
		syncGroup := api.Group("/sync")
		{
			syncGroup.POST("/runs", deps.SyncHandler.TriggerSync)
			syncGroup.GET("/runs", deps.SyncHandler.ListRuns)
			syncGroup.GET("/runs/:id", deps.SyncHandler.GetRun)
			syncGroup.POST("/files", deps.SyncHandler.TriggerFileMigration)
			syncGroup.POST("/validate", deps.SyncHandler.TriggerValidation)
			syncGroup.GET("/status", deps.SyncHandler.GetStatus)
		}
	}

	return engine
}
