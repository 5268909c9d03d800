// Package config loads the backend daemon configuration from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tunebridge-go/infrastructure/repository"
)

// Storage drivers.
const (
	StorageMemory  = "memory"
	StorageMongoDB = "mongodb"
)

// Config is the root configuration document.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
}

// ServerConfig configures the process-boundary endpoint.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	// Path is the WebSocket endpoint UI processes connect to.
	Path string `yaml:"path"`
	// AllowedOrigins are host patterns accepted for cross-origin WebSocket upgrades.
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DispatchConfig configures the command dispatcher.
type DispatchConfig struct {
	// InvokeTimeout bounds every request. Zero disables the bound.
	InvokeTimeout time.Duration `yaml:"invoke_timeout"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Dir       string `yaml:"dir"`
	AddSource bool   `yaml:"add_source"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// StorageConfig selects the settings backend.
type StorageConfig struct {
	Driver  string                   `yaml:"driver"`
	MongoDB repository.MongoDBConfig `yaml:"mongodb"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          "127.0.0.1:7638",
			Path:            "/ipc",
			AllowedOrigins:  []string{"localhost:*", "127.0.0.1:*"},
			ShutdownTimeout: 5 * time.Second,
		},
		Dispatch: DispatchConfig{
			InvokeTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Storage: StorageConfig{
			Driver:  StorageMemory,
			MongoDB: *repository.DefaultMongoDBConfig(),
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
// Unknown keys are rejected so typos surface at startup.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the daemon cannot start with.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Listen == "" {
		problems = append(problems, "server.listen is required")
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		problems = append(problems, fmt.Sprintf("server.path %q must start with /", c.Server.Path))
	}
	if c.Server.ShutdownTimeout < 0 {
		problems = append(problems, "server.shutdown_timeout must not be negative")
	}
	if c.Dispatch.InvokeTimeout < 0 {
		problems = append(problems, "dispatch.invoke_timeout must not be negative")
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		problems = append(problems, fmt.Sprintf("logging.format %q must be \"text\" or \"json\"", c.Logging.Format))
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StorageMongoDB:
		if c.Storage.MongoDB.URI == "" {
			problems = append(problems, "storage.mongodb.uri is required for the mongodb driver")
		}
		if c.Storage.MongoDB.Database == "" {
			problems = append(problems, "storage.mongodb.database is required for the mongodb driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.driver %q must be %q or %q", c.Storage.Driver, StorageMemory, StorageMongoDB))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Marshal renders the configuration as YAML. tunebridge --print-config uses it
// to show the effective configuration.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
