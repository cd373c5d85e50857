package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumeforge/internal/api/middleware"
	"resumeforge/internal/auth"
	"resumeforge/internal/config"
	"resumeforge/internal/storage"
	"resumeforge/internal/store"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	resumeStore *store.Store,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
) {
	router.Use(middleware.CorrelationIDMiddleware(), middleware.SlogLoggerMiddleware(logger))

	resumeHandler := NewResumeHandler(resumeStore, asynqClient, storageClient, cfg.App.MaxResumesPerUser)
	authHandler := NewAuthHandler(db, authService, redisClient, logger,
		cfg.Auth.LoginRateLimitPerHour, cfg.Auth.LoginLockThreshold, cfg.Auth.LoginLockTTL)
	wsHandler := NewWsHandler(redisClient, authService, resumeStore, logger, cfg.API.AllowedOrigins, cfg.App.AutosaveInterval)
	assetHandler := NewAssetHandler(db, storageClient, logger, cfg.Clamd.Address)
	templateHandler := NewTemplateHandler()

	authMiddleware := middleware.AuthMiddleware(authService)
	optionalAuth := middleware.OptionalAuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		templateGroup := v1.Group("/templates")
		{
			templateGroup.GET("", templateHandler.ListTemplates)
			templateGroup.GET("/:id", templateHandler.GetTemplate)
		}

		resumeGroup := v1.Group("/resumes")
		{
			// 读取端点允许匿名访问公开简历。
			resumeGroup.GET("/:id", optionalAuth, resumeHandler.GetResume)
			resumeGroup.GET("/:id/download", optionalAuth, resumeHandler.DownloadResume)

			resumeGroup.POST("", authMiddleware, resumeHandler.CreateResume)
			resumeGroup.GET("", authMiddleware, resumeHandler.ListResumes)
			resumeGroup.PATCH("/:id", authMiddleware, resumeHandler.UpdateResume)
			resumeGroup.DELETE("/:id", authMiddleware, resumeHandler.DeleteResume)
			resumeGroup.POST("/:id/export", authMiddleware, resumeHandler.ExportResume)
			resumeGroup.GET("/:id/download-link", authMiddleware, resumeHandler.GetDownloadLink)
		}

		assetGroup := v1.Group("/assets")
		assetGroup.Use(authMiddleware)
		{
			assetGroup.POST("/upload", assetHandler.UploadAsset)
			assetGroup.GET("", assetHandler.ListAssets)
			assetGroup.GET("/view", assetHandler.GetAssetURL)
		}
	}
}
