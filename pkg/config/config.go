// Package config loads and validates the FileDock server configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (FILEDOCK_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Store configuration pattern: the Table and Objects sections carry a Type
// selector plus one map per supported backend; only the map matching the
// selected type is decoded, by the factory for that backend.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete FileDock server configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`

	// Table selects and configures the metadata table backend.
	Table TableConfig `mapstructure:"table"`

	// Objects selects and configures the file content backend.
	Objects ObjectsConfig `mapstructure:"objects"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format is the log output format: console or json.
	Format string `mapstructure:"format" validate:"required,oneof=console json"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// ListenAddr is the address the HTTP server binds, e.g. ":8080".
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// SeedAdmin creates the default admin account at startup when no admin
	// exists yet.
	SeedAdmin bool `mapstructure:"seed_admin"`
}

// TableConfig selects the metadata table backend.
//
// Only the configuration map matching Type is used.
type TableConfig struct {
	// Type is the table backend: memory or badger.
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory holds memory-backend options. Only used when Type = "memory".
	Memory map[string]any `mapstructure:"memory"`

	// Badger holds BadgerDB options. Only used when Type = "badger".
	Badger map[string]any `mapstructure:"badger"`
}

// ObjectsConfig selects the file content backend.
//
// Only the configuration map matching Type is used.
type ObjectsConfig struct {
	// Type is the object store backend: memory or s3.
	Type string `mapstructure:"type" validate:"required,oneof=memory s3"`

	// Memory holds memory-backend options. Only used when Type = "memory".
	Memory map[string]any `mapstructure:"memory"`

	// S3 holds S3 options. Only used when Type = "s3".
	S3 map[string]any `mapstructure:"s3"`
}

// Load loads configuration from file, environment, and defaults.
//
// An empty configPath uses the default location under the user config
// directory; a missing config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable and config file handling.
// Environment variables use the FILEDOCK_ prefix with underscores, e.g.
// FILEDOCK_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("FILEDOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if one exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory, preferring
// XDG_CONFIG_HOME, then ~/.config, then the current directory.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "filedock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "filedock")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
