package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"carbon-scribe/onboarding-tracker/internal/onboarding"
	"carbon-scribe/onboarding-tracker/pkg/storage"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Audit   AuditConfig   `json:"audit" yaml:"audit"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Tracker TrackerConfig `json:"tracker" yaml:"tracker"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// StorageConfig selects where tracker snapshots are kept
type StorageConfig struct {
	Driver    string `json:"driver" yaml:"driver"`
	Path      string `json:"path" yaml:"path"`
	DSN       string `json:"dsn" yaml:"dsn"`
	SQLDriver string `json:"sql_driver" yaml:"sql_driver"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	Prefix    string `json:"prefix" yaml:"prefix"`
	Table     string `json:"table" yaml:"table"`
	Region    string `json:"region" yaml:"region"`
}

// AuditConfig configures the step history kept in Postgres
type AuditConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	DSN           string `json:"dsn" yaml:"dsn"`
	RetentionDays int    `json:"retention_days" yaml:"retention_days"`
	Schedule      string `json:"schedule" yaml:"schedule"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// TrackerConfig names the session and its steps
type TrackerConfig struct {
	SessionKey string                      `json:"session_key" yaml:"session_key"`
	Steps      []onboarding.StepDefinition `json:"steps" yaml:"steps"`
}

// DefaultSteps is used when the configuration names no steps
func DefaultSteps() []onboarding.StepDefinition {
	return []onboarding.StepDefinition{
		{ID: "create_account", Label: "Create your account"},
		{ID: "verify_email", Label: "Verify your email address"},
		{ID: "complete_profile", Label: "Complete your profile"},
		{ID: "connect_workspace", Label: "Connect a workspace"},
		{ID: "invite_team", Label: "Invite your team"},
	}
}

// LoadConfig loads configuration from file and environment variables.
// A missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			SQLDriver: "postgres",
		},
		Audit: AuditConfig{
			RetentionDays: 90,
			Schedule:      "@daily",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Tracker: TrackerConfig{
			SessionKey: "default",
		},
	}

	// .env is optional
	_ = godotenv.Load()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := unmarshal(configPath, data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	if config.Storage.Driver == "" {
		// a path alone selects the file store
		config.Storage.Driver = storage.DriverMemory
		if config.Storage.Path != "" {
			config.Storage.Driver = storage.DriverFile
		}
	}
	if config.Audit.DSN != "" {
		config.Audit.Enabled = true
	}
	if len(config.Tracker.Steps) == 0 {
		config.Tracker.Steps = DefaultSteps()
	}

	return config, nil
}

func unmarshal(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return json.Unmarshal(data, config)
	}
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		config.Storage.Driver = driver
	}
	if path := os.Getenv("STORAGE_PATH"); path != "" {
		config.Storage.Path = path
	}
	if dsn := os.Getenv("STORAGE_DSN"); dsn != "" {
		config.Storage.DSN = dsn
	}
	if bucket := os.Getenv("STORAGE_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}
	if table := os.Getenv("STORAGE_TABLE"); table != "" {
		config.Storage.Table = table
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.Storage.Region = region
	}
	if dsn := os.Getenv("AUDIT_DSN"); dsn != "" {
		config.Audit.DSN = dsn
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if key := os.Getenv("TRACKER_SESSION_KEY"); key != "" {
		config.Tracker.SessionKey = key
	}
}

// Validate checks the settings that cannot be defaulted
func (c *Config) Validate() error {
	if !slices.Contains(storage.Drivers, c.Storage.Driver) {
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Tracker.SessionKey == "" {
		return errors.New("tracker session key is required")
	}
	if err := onboarding.ValidateDefinitions(c.Tracker.Steps); err != nil {
		return err
	}
	if c.Audit.Enabled && c.Audit.DSN == "" {
		return errors.New("audit is enabled but no dsn is set")
	}
	return nil
}

// StorageOptions converts the storage section for storage.Open
func (c *StorageConfig) StorageOptions() storage.Options {
	return storage.Options{
		Driver:    c.Driver,
		Path:      c.Path,
		SQLDriver: c.SQLDriver,
		DSN:       c.DSN,
		Bucket:    c.Bucket,
		Prefix:    c.Prefix,
		Table:     c.Table,
		Region:    c.Region,
	}
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
