package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "carbon-scribe/onboarding-tracker/api/v1"
	"carbon-scribe/onboarding-tracker/internal/audit"
	"carbon-scribe/onboarding-tracker/internal/config"
	"carbon-scribe/onboarding-tracker/pkg/logging"
	"carbon-scribe/onboarding-tracker/pkg/storage"
)

func main() {
	configPath := flag.String("config", "config.json", "path to a JSON or YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	// Open snapshot storage
	store, err := storage.Open(ctx, cfg.Storage.StorageOptions())
	if err != nil {
		logger.Fatal("Failed to open snapshot storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer store.Close()
	logger.Info("Opened snapshot storage", zap.String("driver", cfg.Storage.Driver))

	deps := v1.OnboardingDeps{
		Store:      store,
		SessionKey: cfg.Tracker.SessionKey,
		Steps:      cfg.Tracker.Steps,
		Logger:     logger,
	}

	if cfg.Audit.Enabled {
		repo, err := audit.OpenPostgres(cfg.Audit.DSN)
		if err != nil {
			logger.Fatal("Failed to open audit database", zap.Error(err))
		}
		defer repo.Close()
		deps.AuditRepository = repo
	}

	// Initialize Onboarding Module
	api, err := v1.SetupOnboardingAPI(ctx, deps)
	if err != nil {
		logger.Fatal("Failed to set up onboarding API", zap.Error(err))
	}
	defer api.Close()

	// Setup Router
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	group := router.Group("/api/v1")
	{
		v1.RegisterOnboardingRoutes(group, api)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "healthy",
			"timestamp":        time.Now(),
			"session_key":      cfg.Tracker.SessionKey,
			"percent_complete": api.Tracker.PercentComplete(),
			"feed_clients":     api.Feed.GetConnectionCount(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:    cfg.Server.GetServerAddr(),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Disconnect feed clients first; Shutdown does not wait for hijacked connections.
	api.Feed.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
