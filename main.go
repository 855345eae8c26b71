package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-ticketing/internal/di"
	"github.com/prohmpiriya/event-ticketing/internal/events"
	"github.com/prohmpiriya/event-ticketing/internal/gateway"
	"github.com/prohmpiriya/event-ticketing/internal/repository"
	"github.com/prohmpiriya/event-ticketing/internal/service"
	"github.com/prohmpiriya/event-ticketing/pkg/config"
	"github.com/prohmpiriya/event-ticketing/pkg/database"
	"github.com/prohmpiriya/event-ticketing/pkg/logger"
	"github.com/prohmpiriya/event-ticketing/pkg/middleware"
	pkgredis "github.com/prohmpiriya/event-ticketing/pkg/redis"
	"github.com/prohmpiriya/event-ticketing/pkg/telemetry"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.App.Debug {
		logLevel = "debug"
	}
	if err := logger.Init(&logger.Config{
		Level:       logLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting ticketing service...", zap.String("environment", cfg.App.Environment))

	ctx := context.Background()

	// Initialize tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Telemetry initialization failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	// Initialize database connection, falling back to memory outside production
	var repos *repository.Repositories
	db, err := database.NewPostgres(ctx, database.PostgresConfigFrom(cfg.Database, cfg.OTel.Enabled))
	if err != nil {
		if cfg.IsProduction() {
			appLog.Fatal("Database connection failed", zap.Error(err))
		}
		appLog.Warn("Database connection failed, using in-memory repositories (data will not persist)", zap.Error(err))
		db = nil
		repos = repository.NewMemoryRepositories()
	} else {
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			appLog.Fatal("Database migration failed", zap.Error(err))
		}
		repos = repository.NewPostgresRepositories(db)
		appLog.Info("Database connected", zap.String("host", cfg.Database.Host))
	}

	// Initialize Redis connection for purchase idempotency
	var idempotency *middleware.IdempotencyConfig
	redisClient, err := pkgredis.NewClient(ctx, pkgredis.ConfigFrom(cfg.Redis))
	if err != nil {
		appLog.Warn("Redis connection failed, purchases run without idempotency keys", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		idempotency = middleware.DefaultIdempotencyConfig(redisClient)
		appLog.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// Initialize event publisher
	var publisher events.Publisher = events.NewNoOpPublisher()
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := events.NewKafkaPublisher(ctx, &events.KafkaPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.PaymentTopic,
			ServiceName: cfg.App.Name,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn("Kafka publisher unavailable, payment events are not published", zap.Error(err))
		} else {
			publisher = kafkaPublisher
			appLog.Info("Kafka publisher connected", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	}
	defer publisher.Close()

	// Initialize payment gateways
	gateways, err := gateway.NewRegistryFromConfig(cfg)
	if err != nil {
		appLog.Fatal("Failed to build payment gateways", zap.Error(err))
	}

	signer, err := service.NewQRSigner(cfg.Ticket.QRSigningKey, cfg.Ticket.QRTokenTTL)
	if err != nil {
		appLog.Fatal("Failed to create QR signer", zap.Error(err))
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:             db,
		Redis:          redisClient,
		Repos:          repos,
		Gateways:       gateways,
		EventPublisher: publisher,
		QRSigner:       signer,
		GatewayTimeout: cfg.Gateway.Timeout,
	})

	// Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := container.Router(&di.RouterConfig{
		ServiceName: cfg.OTel.ServiceName,
		Version:     cfg.App.Version,
		Idempotency: idempotency,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Start server in goroutine
	go func() {
		appLog.Info("Ticketing service listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}
