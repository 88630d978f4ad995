package config

import "errors"

// set wraps an assignment that cannot fail.
func set(fn func(*ServerConfig)) Option {
	return func(c *ServerConfig) error {
		fn(c)
		return nil
	}
}

// WithPort sets the HTTP port.
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return errors.New("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the runtime environment.
func WithEnvironment(env string) Option {
	return set(func(c *ServerConfig) { c.Environment = env })
}

// WithDatabase selects the page store: "memory", "sqlite" with a file path
// or "postgres" with a connection URL.
func WithDatabase(dbType, target string) Option {
	return set(func(c *ServerConfig) {
		c.DatabaseType = dbType
		switch dbType {
		case "sqlite":
			c.SQLitePath = target
		case "postgres":
			c.DatabaseURL = target
		}
	})
}

func WithDatabaseSchema(schema string) Option {
	return set(func(c *ServerConfig) { c.DBSchema = schema })
}

// WithAutoMigrate toggles table creation on startup.
func WithAutoMigrate(enabled bool) Option {
	return set(func(c *ServerConfig) { c.AutoMigrate = enabled })
}

// WithDefaultStorage selects the blob store new uploads go to.
func WithDefaultStorage(name string) Option {
	return set(func(c *ServerConfig) { c.DefaultStorageBackend = name })
}

// WithMemoryStorage registers an in-memory blob store, named "memory" unless
// given.
func WithMemoryStorage(name string) Option {
	return set(func(c *ServerConfig) {
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name: nameOr(name, "memory"),
			Type: "memory",
		})
	})
}

// WithFilesystemStorage registers a blob store rooted at baseDir.
func WithFilesystemStorage(name, baseDir, urlPrefix string) Option {
	return set(func(c *ServerConfig) {
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name:   nameOr(name, "fs"),
			Type:   "fs",
			Config: map[string]interface{}{"base_dir": baseDir, "url_prefix": urlPrefix},
		})
	})
}

// WithS3Storage registers a bucket. Credentials and endpoint come from the
// default AWS chain unless set through the environment.
func WithS3Storage(name, bucket, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return errors.New("bucket cannot be empty")
		}
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name:   nameOr(name, "s3"),
			Type:   "s3",
			Config: map[string]interface{}{"bucket": bucket, "region": region},
		})
		return nil
	}
}

// WithObjectKeyGenerator selects "flat" or "git-like" image object keys.
func WithObjectKeyGenerator(generator string) Option {
	return set(func(c *ServerConfig) { c.ObjectKeyGenerator = generator })
}

// WithJWTSecret guards write routes with HS256 bearer tokens.
func WithJWTSecret(secret string) Option {
	return set(func(c *ServerConfig) { c.JWTSecret = secret })
}

// WithPublishSchedule sets the cron spec of scheduled publishing. Empty
// disables the scheduler.
func WithPublishSchedule(spec string) Option {
	return set(func(c *ServerConfig) { c.PublishSchedule = spec })
}

func WithEventLogging(enabled bool) Option {
	return set(func(c *ServerConfig) { c.EnableEventLogging = enabled })
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
