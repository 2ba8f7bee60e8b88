package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/playerstats-api/internal/config"
	"github.com/playerstats-api/internal/handler"
	"github.com/playerstats-api/internal/kafka"
	"github.com/playerstats-api/internal/origin"
	"github.com/playerstats-api/internal/postgres"
	"github.com/playerstats-api/internal/redis"
	"github.com/playerstats-api/internal/service"
	"github.com/playerstats-api/internal/tracker"
	"github.com/playerstats-api/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis
	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	cache, err := redis.NewCache(&cfg.Redis, &cfg.Cache, logger)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer cache.Close()
	logger.Info("connected to Redis")

	// Initialize PostgreSQL
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	repo, err := postgres.NewRepository(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := repo.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize background task queue
	taskQueue := worker.NewQueue(&cfg.Worker, logger)
	if err := taskQueue.Start(ctx); err != nil {
		logger.Error("failed to start task queue", "error", err)
		os.Exit(1)
	}

	// Initialize origin clients
	mojangClient := origin.NewMojangClient(&cfg.Providers, logger)
	hypixelClient := origin.NewHypixelClient(&cfg.Providers, logger)
	wynncraftClient := origin.NewWynncraftClient(&cfg.Providers, logger)

	// Initialize services
	metricsService := service.NewMetricsService(repo, &cfg.Cache, logger)
	defer metricsService.Close()

	identityService := service.NewIdentityService(cache, mojangClient, repo, taskQueue, &cfg.Guild, logger)
	hypixelService := service.NewHypixelService(cache, hypixelClient, identityService, metricsService, &cfg.Guild, taskQueue, logger)
	wynncraftService := service.NewWynncraftService(cache, wynncraftClient, metricsService, taskQueue, logger)
	statusService := service.NewStatusService(hypixelClient, wynncraftClient, logger)

	// Initialize tracker hub
	hub := tracker.NewHub(logger)
	go hub.Run()
	logger.Info("tracker hub initialized")

	// Start the presence poller
	var poller *tracker.Poller
	if cfg.Tracker.Enabled {
		poller = tracker.NewPoller(hub, statusService, &cfg.Tracker, logger)
		if err := poller.Start(ctx); err != nil {
			logger.Error("failed to start status poller", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Kafka consumer for metric observation ingestion
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		var err error
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, metricsService, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Initialize HTTP handler
	httpHandler := handler.NewHandler(
		identityService,
		hypixelService,
		wynncraftService,
		statusService,
		metricsService,
		repo,
		hub,
		taskQueue,
		logger,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop tracker hub and poller
	if poller != nil {
		if err := poller.Stop(); err != nil {
			logger.Error("failed to stop status poller", "error", err)
		}
	}
	hub.Stop()

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop task queue
	if err := taskQueue.Stop(); err != nil {
		logger.Error("failed to stop task queue", "error", err)
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
