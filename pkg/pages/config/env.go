package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Environment is the set of variables read by WithEnv.
//
// Database:
//
//	DATABASE_URL - "memory" (default), "sqlite:///path/to/pages.db" or
//	               "postgres(ql)://user:pass@host/db"
//	DB_SCHEMA    - Postgres schema put on the search path
//
// Storage:
//
//	STORAGE_URL - "memory://" (default), "file:///path/to/images" or
//	              "s3://bucket?region=eu-central-1&endpoint=http://localhost:9000"
//
// PUBLISH_SCHEDULE takes a cron spec; "off" disables scheduled publishing.
type Environment struct {
	Port           string   `env:"PORT"`
	Environment    string   `env:"ENVIRONMENT"`
	DatabaseURL    string   `env:"DATABASE_URL"`
	DBSchema       string   `env:"DB_SCHEMA"`
	AutoMigrate    string   `env:"AUTO_MIGRATE"`
	StorageURL     string   `env:"STORAGE_URL"`
	ImageBaseURL   string   `env:"IMAGE_BASE_URL"`
	JWTSecret      string   `env:"JWT_SECRET"`
	PublishCron    string   `env:"PUBLISH_SCHEDULE"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" env-separator:","`
	EventLogging   string   `env:"EVENT_LOGGING"`
	MaxUploadSize  int64    `env:"MAX_UPLOAD_SIZE"`

	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `env:"AWS_REGION"`
	S3PublicBaseURL    string `env:"S3_PUBLIC_BASE_URL"`
}

// WithEnv applies environment variable overrides. Unset variables keep the
// current values.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env Environment
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return env.apply(c)
	}
}

func (e Environment) apply(c *ServerConfig) error {
	if e.Port != "" {
		c.Port = e.Port
	}
	if e.Environment != "" {
		c.Environment = e.Environment
	}
	if e.DBSchema != "" {
		c.DBSchema = e.DBSchema
	}
	if e.AutoMigrate != "" {
		v, err := strconv.ParseBool(e.AutoMigrate)
		if err != nil {
			return fmt.Errorf("invalid boolean for AUTO_MIGRATE: %w", err)
		}
		c.AutoMigrate = v
	}
	if e.ImageBaseURL != "" {
		c.ImageBaseURL = e.ImageBaseURL
	}
	if e.JWTSecret != "" {
		c.JWTSecret = e.JWTSecret
	}
	switch e.PublishCron {
	case "":
	case "off", "none":
		c.PublishSchedule = ""
	default:
		c.PublishSchedule = e.PublishCron
	}
	if len(e.AllowedOrigins) > 0 {
		c.AllowedOrigins = e.AllowedOrigins
	}
	if e.EventLogging != "" {
		v, err := strconv.ParseBool(e.EventLogging)
		if err != nil {
			return fmt.Errorf("invalid boolean for EVENT_LOGGING: %w", err)
		}
		c.EnableEventLogging = v
	}
	if e.MaxUploadSize != 0 {
		c.MaxUploadSize = e.MaxUploadSize
	}

	if err := applyDatabaseURL(e.DatabaseURL, c); err != nil {
		return err
	}
	return e.applyStorageURL(c)
}

func applyDatabaseURL(dbURL string, c *ServerConfig) error {
	switch {
	case dbURL == "" || dbURL == "memory" || dbURL == "memory://":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "sqlite://"):
		path := strings.TrimPrefix(dbURL, "sqlite://")
		if path == "" {
			return fmt.Errorf("sqlite path cannot be empty in DATABASE_URL")
		}
		c.DatabaseType = "sqlite"
		c.SQLitePath = path
		c.DatabaseURL = dbURL
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory', 'sqlite://...' or 'postgresql://...')", dbURL)
	}
	return nil
}

func (e Environment) applyStorageURL(c *ServerConfig) error {
	storageURL := e.StorageURL
	if storageURL == "" || storageURL == "memory" || storageURL == "memory://" {
		c.DefaultStorageBackend = "memory"
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{Name: "memory", Type: "memory"})
		return nil
	}

	u, err := url.Parse(storageURL)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}

	switch u.Scheme {
	case "file":
		path := u.Path
		if u.Host != "" {
			path = u.Host + u.Path
		}
		if path == "" {
			return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
		}
		c.DefaultStorageBackend = "fs"
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name:   "fs",
			Type:   "fs",
			Config: map[string]interface{}{"base_dir": path},
		})
	case "s3":
		if u.Host == "" {
			return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
		}
		q := u.Query()
		backend := StorageBackendConfig{
			Name: "s3",
			Type: "s3",
			Config: map[string]interface{}{
				"bucket": u.Host,
				"region": "us-east-1",
			},
		}
		if e.AWSRegion != "" {
			backend.Config["region"] = e.AWSRegion
		}
		if region := q.Get("region"); region != "" {
			backend.Config["region"] = region
		}
		if endpoint := q.Get("endpoint"); endpoint != "" {
			backend.Config["endpoint"] = endpoint
			backend.Config["use_path_style"] = true
		}
		if v := q.Get("create_bucket"); v != "" {
			backend.Config["create_bucket_if_not_exist"] = v
		}
		if e.AWSAccessKeyID != "" {
			backend.Config["access_key_id"] = e.AWSAccessKeyID
		}
		if e.AWSSecretAccessKey != "" {
			backend.Config["secret_access_key"] = e.AWSSecretAccessKey
		}
		if e.S3PublicBaseURL != "" {
			backend.Config["public_base_url"] = e.S3PublicBaseURL
		}
		c.DefaultStorageBackend = "s3"
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, backend)
	default:
		return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...' or 's3://...')", storageURL)
	}
	return nil
}

func upsertStorageBackend(backends []StorageBackendConfig, backend StorageBackendConfig) []StorageBackendConfig {
	if backend.Config == nil {
		backend.Config = map[string]interface{}{}
	}
	for i := range backends {
		if backends[i].Name == backend.Name {
			backends[i] = backend
			return backends
		}
	}
	return append(backends, backend)
}
