package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/auth"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/config"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/database"
	routingEvents "github.com/Kilat-Pet-Delivery/service-routing/internal/events"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/gateway"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/handler"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/health"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/kafka"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/logger"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/middleware"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/repository"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/tracing"
)

const serviceName = "service-routing"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewWithLevel(cfg.AppEnv, serviceName, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("routing_provider", cfg.RoutingConfig.Provider),
		zap.Bool("routing_key_configured", cfg.RoutingConfig.APIKey != ""),
	)
	// Install tracing; provider calls are traced through otelhttp
	shutdownTracing := tracing.Install(serviceName, log.Named("trace"))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	if cfg.RoutingConfig.APIKey == "" {
		log.Warn("GOOGLE_MAPS_API_KEY is not set; every route request will fail with a configuration error")
	}

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.RouteRunModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, 15*time.Minute)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize the routing provider client
	routingCfg := cfg.RoutingConfig
	fetcher, err := gateway.NewFetcher(routingCfg.Provider, routingCfg.APIKey, routingCfg.Timeout, log.Named("gateway"))
	if err != nil {
		log.Fatal("failed to create routing provider client", zap.Error(err))
	}
	fetcher = gateway.NewRetryingFetcher(fetcher, routingCfg.MaxRetries, 0, log.Named("gateway"))

	// Initialize repositories
	runRepo := repository.NewGormRouteRunRepository(db)

	// Initialize application service
	routeService := application.NewRouteService(
		fetcher,
		application.ServiceConfig{
			Options:      routingCfg.Options(),
			Concurrency:  routingCfg.BatchConcurrency,
			BatchTimeout: routingCfg.BatchTimeout,
		},
		runRepo,
		kafkaProducer,
		log,
	)

	// Initialize and start optimization event consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.KafkaConfig.GroupPrefix + "routing-service"
	optimizationConsumer := routingEvents.NewOptimizationEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		routeService,
		log,
	)
	defer func() { _ = optimizationConsumer.Close() }()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		log.Info("starting optimization event consumer")
		if err := optimizationConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("optimization event consumer error", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	routeHandler := handler.NewRouteHandler(routeService)
	adminRouteHandler := handler.NewAdminRouteHandler(routeService, log.Named("admin"))

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, serviceName)
	healthHandler.RegisterRoutes(router)

	// Register routes
	routeHandler.RegisterRoutes(&router.RouterGroup)
	adminRouteHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// The write deadline must outlast a full batch.
	writeTimeout := 15 * time.Second
	if bt := routingCfg.BatchTimeout + 10*time.Second; bt > writeTimeout {
		writeTimeout = bt
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer context and let a plan in flight finish
	cancel()
	select {
	case <-consumerDone:
	case <-time.After(writeTimeout):
		log.Warn("optimization event consumer did not stop in time")
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}
