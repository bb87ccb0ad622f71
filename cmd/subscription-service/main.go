package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dhoini/subscription-service/internal/app"
	"github.com/Dhoini/subscription-service/internal/config"
	"github.com/Dhoini/subscription-service/internal/domain"
	grpcserver "github.com/Dhoini/subscription-service/internal/grpc"
	"github.com/Dhoini/subscription-service/internal/http/handlers"
	"github.com/Dhoini/subscription-service/internal/http/routes"
	"github.com/Dhoini/subscription-service/internal/integration/razorpay"
	"github.com/Dhoini/subscription-service/internal/kafka"
	"github.com/Dhoini/subscription-service/internal/metrics"
	"github.com/Dhoini/subscription-service/internal/middleware"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/internal/repository/postgres"
	"github.com/Dhoini/subscription-service/internal/service"
	"github.com/Dhoini/subscription-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(".env")
	if err != nil {
		logger.New(logger.INFO).Fatalw("Failed to load configuration", "error", err)
	}

	log := initLogger(cfg)
	defer func() { _ = log.Sync() }()
	log.Infow("Subscription service starting up...", "env", cfg.App.Env)

	if err := cfg.Validate(); err != nil {
		log.Fatalw("Invalid configuration", "error", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Prometheus
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	subscriptionMetrics := metrics.NewSubscriptionMetrics(registry)
	systemMetrics := metrics.NewSystemMetrics(registry, log)
	systemMetrics.StartRecording(15 * time.Second)
	defer systemMetrics.Stop()

	// Хранилище: PostgreSQL или память для локального запуска
	var (
		store    repository.Store
		dbPinger handlers.Pinger
		grpcDB   grpcserver.Pinger
	)
	if cfg.Database.DSN != "" {
		pool, err := postgres.NewConnection(ctx, postgres.ConnectionConfig{
			DSN:            cfg.Database.DSN,
			MaxConns:       cfg.Database.MaxConns,
			ConnectTimeout: cfg.Database.ConnectTimeout,
		}, log)
		if err != nil {
			log.Fatalw("Failed to connect to database", "error", err)
		}
		defer pool.Close()

		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			log.Fatalw("Failed to prepare database schema", "error", err)
		}
		pgStore := postgres.NewStore(pool, log)
		store, dbPinger, grpcDB = pgStore, pgStore, pgStore
		log.Infow("Database connection established")
	} else {
		if cfg.IsProduction() {
			log.Fatalw("database.dsn is required in production")
		}
		log.Warnw("DATABASE_DSN is not set, using in-memory store")
		store = repository.NewMemoryStore()
	}

	// Redis кеш отчета, не обязателен
	var pageCache repository.SubscriptionPageCache
	if cfg.Redis.Addr != "" {
		redisCache, redisClient, err := repository.NewRedisCacheRepository(
			cfg.Redis.Addr,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.ReportTTL,
			log,
		)
		if err != nil {
			log.Warnw("Failed to initialize Redis cache, continuing without caching", "error", err)
		} else {
			pageCache = redisCache
			defer func() {
				if err := redisClient.Close(); err != nil {
					log.Errorw("Error closing Redis connection", "error", err)
				}
			}()
		}
	}

	// Kafka, события жизненного цикла для сервиса уведомлений
	var producer kafka.Producer = kafka.NewNoOpProducer(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaCfg := kafka.NewConfig(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err := kafka.EnsureTopic(kafkaCfg, log); err != nil {
			log.Warnw("Failed to ensure Kafka topic", "error", err)
		}
		p, err := kafka.NewProducer(kafkaCfg, log)
		if err != nil {
			log.Errorw("Failed to initialize Kafka producer, continuing without event publishing", "error", err)
		} else {
			producer = p
			log.Infow("Kafka producer initialized", "topic", cfg.Kafka.Topic)
		}
	}
	defer func() {
		if err := producer.Close(); err != nil {
			log.Errorw("Error closing Kafka producer", "error", err)
		}
	}()

	gateway := razorpay.NewClient(razorpay.Config{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
		Timeout:   cfg.Razorpay.Timeout,
	}, subscriptionMetrics, log)

	subscriptions := service.NewSubscriptionService(service.SubscriptionConfig{
		PlanID:         cfg.Razorpay.PlanID,
		TotalCount:     cfg.Subscription.TotalCount,
		RefundSpeed:    domain.RefundSpeed(cfg.Subscription.RefundSpeed),
		TerminalStatus: domain.SubscriptionStatus(cfg.Subscription.TerminalStatus),
	}, service.Dependencies{
		Store:     store,
		Gateway:   gateway,
		Verifier:  razorpay.NewSignatureVerifier(cfg.Razorpay.SigningSecret),
		Policy:    service.NewRefundPolicy(cfg.Subscription.RefundWindow),
		Producer:  producer,
		PageCache: pageCache,
		Metrics:   subscriptionMetrics,
		Log:       log,
	})
	reports := service.NewReportService(gateway, pageCache, log)

	application := app.NewApp(cfg, app.Services{
		Subscriptions: subscriptions,
		Reports:       reports,
		Users:         store.Users(),
		DB:            dbPinger,
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, middleware.NewTokenValidator(cfg.Auth.JWTSecret), log)

	router := gin.New()
	routes.SetupRoutes(router, application, log)

	httpServer := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Razorpay.Timeout*2 + 5*time.Second,
	}

	go func() {
		log.Infow("Starting HTTP server", "port", cfg.App.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	// gRPC: health и reflection
	grpcListener, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		log.Fatalw("Failed to listen for gRPC", "error", err)
	}
	grpcServer := grpcserver.NewServer(log)
	go grpcServer.WatchReadiness(ctx, grpcDB, 10*time.Second)
	go func() {
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Fatalw("Failed to start gRPC server", "error", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infow("Shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	log.Infow("Shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown error", "error", err)
	} else {
		log.Infow("HTTP server gracefully stopped")
	}

	grpcServer.Stop()
	log.Infow("gRPC server gracefully stopped")

	log.Infow("Cleanup finished. Goodbye!")
}

func initLogger(cfg *config.Config) *logger.Logger {
	level := logger.ParseLevel(cfg.Log.Level)
	if cfg.IsProduction() {
		return logger.NewProduction(level)
	}
	return logger.New(level)
}
