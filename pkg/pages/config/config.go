// Package config assembles a pages.Service from options and environment
// variables.
package config

import (
	"errors"
	"fmt"
	"slices"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// ServerConfig holds everything the servers and tools need to build the page
// service.
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	DatabaseType string // memory, sqlite, postgres
	DatabaseURL  string
	SQLitePath   string
	DBSchema     string // Postgres search_path
	AutoMigrate  bool

	DefaultStorageBackend string
	StorageBackends       []StorageBackendConfig
	ImageBaseURL          string
	ObjectKeyGenerator    string // flat, git-like

	JWTSecret          string // empty leaves write routes open
	PublishSchedule    string // cron spec; empty disables
	AllowedOrigins     []string
	EnableEventLogging bool
	MaxUploadSize      int64
}

// StorageBackendConfig names one blob store and its type specific settings.
type StorageBackendConfig struct {
	Name   string
	Type   string // memory, fs, s3
	Config map[string]interface{}
}

// Load applies opts on top of the defaults and validates the result.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:                  "8080",
		Environment:           "development",
		DatabaseType:          "memory",
		DBSchema:              "oze",
		AutoMigrate:           true,
		DefaultStorageBackend: "memory",
		StorageBackends: []StorageBackendConfig{
			{Name: "memory", Type: "memory", Config: map[string]interface{}{}},
		},
		ImageBaseURL:       "/api/v1/images",
		ObjectKeyGenerator: "git-like",
		PublishSchedule:    "@every 1m",
		EnableEventLogging: true,
		MaxUploadSize:      20 << 20,
	}
}

func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Validate reports the first inconsistent setting.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}

	hasDefault := slices.ContainsFunc(c.StorageBackends, func(b StorageBackendConfig) bool {
		return b.Name == c.DefaultStorageBackend
	})
	if !hasDefault {
		return fmt.Errorf("default storage backend '%s' not found in configured backends", c.DefaultStorageBackend)
	}

	if !slices.Contains([]string{"", "flat", "git-like"}, c.ObjectKeyGenerator) {
		return fmt.Errorf("unsupported object key generator: %s", c.ObjectKeyGenerator)
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return errors.New("jwt secret is required in production")
	}
	if c.MaxUploadSize <= 0 {
		return errors.New("max upload size must be positive")
	}
	return nil
}

func (c *ServerConfig) validateDatabase() error {
	switch c.DatabaseType {
	case "memory":
		return nil
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("sqlite path is required when using sqlite")
		}
		return nil
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when using postgres")
		}
		return nil
	}
	return errors.New("database_type must be 'memory', 'sqlite' or 'postgres'")
}
