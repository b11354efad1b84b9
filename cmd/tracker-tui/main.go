package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"carbon-scribe/onboarding-tracker/internal/config"
	"carbon-scribe/onboarding-tracker/internal/onboarding"
	"carbon-scribe/onboarding-tracker/internal/tui"
	"carbon-scribe/onboarding-tracker/pkg/logging"
	"carbon-scribe/onboarding-tracker/pkg/storage"
)

func main() {
	configPath := flag.String("config", "config.json", "path to a JSON or YAML config file")
	logPath := flag.String("log", "tracker-tui.log", "file that receives log output")
	flag.Parse()

	if err := run(*configPath, *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.NewFile(cfg.Logging.Level, logPath)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage.StorageOptions())
	if err != nil {
		return fmt.Errorf("failed to open snapshot storage: %w", err)
	}
	defer store.Close()

	tracker, err := onboarding.Open(ctx, store, cfg.Tracker.SessionKey, cfg.Tracker.Steps, logger)
	if err != nil {
		return err
	}

	model := tui.New(tracker, "Getting started")
	defer model.Close()

	logger.Info("Starting terminal shell", zap.String("session_key", cfg.Tracker.SessionKey))
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("terminal shell failed: %w", err)
	}
	return nil
}
