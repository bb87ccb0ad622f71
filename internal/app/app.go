package app

import (
	"net/http"

	"github.com/Dhoini/subscription-service/internal/config"
	"github.com/Dhoini/subscription-service/internal/http/handlers"
	"github.com/Dhoini/subscription-service/internal/middleware"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// App представляет собой контейнер для HTTP компонентов приложения
type App struct {
	Config              *config.Config
	SubscriptionHandler *handlers.SubscriptionHandler
	ReportHandler       *handlers.ReportHandler
	HealthHandler       *handlers.HealthHandler
	AuthMiddleware      *middleware.JWTMiddleware
	LoggerMiddleware    gin.HandlerFunc
	MetricsHandler      http.Handler
	Logger              *logger.Logger
}

// Services зависимости HTTP слоя
type Services struct {
	Subscriptions handlers.SubscriptionService
	Reports       handlers.ReportService
	Users         middleware.UserLookup
	DB            handlers.Pinger
	Metrics       http.Handler
}

// NewApp создает и инициализирует новый экземпляр приложения
func NewApp(cfg *config.Config, services Services, validator middleware.TokenValidator, log *logger.Logger) *App {
	return &App{
		Config:              cfg,
		SubscriptionHandler: handlers.NewSubscriptionHandler(services.Subscriptions, log),
		ReportHandler:       handlers.NewReportHandler(services.Reports, log),
		HealthHandler:       handlers.NewHealthHandler(services.DB),
		AuthMiddleware:      middleware.NewJWTMiddleware(log, validator, services.Users),
		LoggerMiddleware:    middleware.RequestLogger(log),
		MetricsHandler:      services.Metrics,
		Logger:              log,
	}
}
