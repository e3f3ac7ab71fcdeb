package app

import (
	"medtrain_backend/docs"
	"medtrain_backend/internal/config"
	"medtrain_backend/internal/middleware"
	"medtrain_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerTrainingRoutes(authGroup, c)
		a.registerNotificationRoutes(authGroup, c)
	}
}

func (a *App) registerTrainingRoutes(rg *gin.RouterGroup, c *controllers) {
	sessions := rg.Group("/training-sessions")
	{
		sessions.POST("", c.session.Create)
		sessions.GET("/:id", c.session.Get)
		sessions.DELETE("/:id", c.session.Delete)
		sessions.GET("/:id/questions", c.session.NextQuestions)
		sessions.POST("/:id/attempts", c.session.SubmitAttempt)
		sessions.POST("/:id/complete", c.session.Complete)
	}

	rg.GET("/mode", c.mode.Get)
	rg.PUT("/mode", c.mode.Update)
}

func (a *App) registerNotificationRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/notifications", c.notification.List)
	rg.POST("/notifications/:id/read", c.notification.MarkRead)
	rg.GET("/ws/notifications", c.notification.Stream)
}
