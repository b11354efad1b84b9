package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"carbon-scribe/onboarding-tracker/internal/audit"
	"carbon-scribe/onboarding-tracker/internal/config"
	"carbon-scribe/onboarding-tracker/pkg/logging"
)

func main() {
	configPath := flag.String("config", "config.json", "path to a JSON or YAML config file")
	once := flag.Bool("once", false, "prune once and exit")
	flag.Parse()

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

	if cfg.Audit.DSN == "" {
		logger.Fatal("Audit retention needs audit.dsn or AUDIT_DSN")
	}

	repo, err := audit.OpenPostgres(cfg.Audit.DSN)
	if err != nil {
		logger.Fatal("Failed to connect to audit database", zap.Error(err))
	}
	defer repo.Close()

	logger.Info("Connected to audit database")

	manager := audit.NewRetentionManager(repo, cfg.Audit.RetentionDays, logger)

	if *once {
		if _, err := manager.Prune(context.Background()); err != nil {
			logger.Error("Prune failed", zap.Error(err))
		}
		return
	}

	if err := manager.Start(cfg.Audit.Schedule); err != nil {
		logger.Fatal("Failed to start audit retention", zap.Error(err))
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutdown signal received")

	manager.Stop()
	logger.Info("Retention worker stopped")
}
