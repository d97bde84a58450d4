package routes

import (
	"net/http"

	"service-template/internal/config"
	"service-template/internal/delivery/http/handler"
	"service-template/internal/infrastructure/database/postgres"
	"service-template/internal/logger"
	"service-template/internal/middleware"
	"service-template/internal/token"
	"service-template/internal/usecase/auth"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(cfg *config.Config, db *postgres.DB) (*gin.Engine, *auth.Service) {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware order: recovery, request ID, logging, security headers,
	// CORS, request size limit, general rate limit.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))
	router.Use(middleware.RateLimitMiddleware(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst))

	router.GET("/livez", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not ready",
				"message": "Database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	userRepository := postgres.NewUserRepository(db)
	roleRepository := postgres.NewRoleRepository(db)
	resetTokenRepository := postgres.NewResetTokenRepository(db)

	codec := token.NewCodec([]byte(cfg.JWT.Secret))
	authService := auth.NewService(userRepository, roleRepository, resetTokenRepository, codec, cfg)
	authHandler := handler.NewAuthHandler(authService, cfg)

	v1 := router.Group("/api/v1")
	{
		authHandler.RegisterRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(authService))
		{
			authHandler.RegisterProtectedRoutes(protected)

			admin := protected.Group("/admin")
			admin.Use(middleware.AdminOnly(authService))
			{
				authHandler.RegisterAdminRoutes(admin)
			}
		}
	}

	logger.Info("All routes initialized")
	return router, authService
}
