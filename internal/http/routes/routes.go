package routes

import (
	"github.com/Dhoini/subscription-service/internal/app"
	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// SetupRoutes настраивает все маршруты API для Gin роутера
func SetupRoutes(router *gin.Engine, app *app.App, log *logger.Logger) {
	router.Use(app.LoggerMiddleware)
	router.Use(gin.Recovery())

	router.GET("/health", app.HealthHandler.Health)
	if app.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(app.MetricsHandler))
	}

	api := router.Group("/api/v1")
	payments := api.Group("/payments")
	{
		// Публичный ключ для Razorpay Checkout
		payments.GET("/razorpay-key", app.SubscriptionHandler.RazorpayKey)

		auth := payments.Group("")
		auth.Use(app.AuthMiddleware.RequireAuth())

		auth.POST("/subscribe", app.AuthMiddleware.ForbidRoles(domain.RoleAdmin), app.SubscriptionHandler.Subscribe)
		auth.POST("/verify", app.SubscriptionHandler.Verify)
		auth.POST("/unsubscribe",
			app.AuthMiddleware.ForbidRoles(domain.RoleAdmin),
			app.AuthMiddleware.RequireRoles(domain.RoleSubscriber),
			app.SubscriptionHandler.Unsubscribe,
		)

		auth.GET("", app.AuthMiddleware.RequireRoles(domain.RoleAdmin), app.ReportHandler.MonthlyReport)
	}

	log.Infow("API routes successfully configured")
}
