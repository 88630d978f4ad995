package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ozeweb/oze-website/pkg/pages"
	"github.com/ozeweb/oze-website/pkg/pages/objectkey"
	"github.com/ozeweb/oze-website/pkg/pages/repo/memory"
	repopg "github.com/ozeweb/oze-website/pkg/pages/repo/postgres"
	reposqlite "github.com/ozeweb/oze-website/pkg/pages/repo/sqlite"
	fsstorage "github.com/ozeweb/oze-website/pkg/pages/storage/fs"
	memorystorage "github.com/ozeweb/oze-website/pkg/pages/storage/memory"
	s3storage "github.com/ozeweb/oze-website/pkg/pages/storage/s3"
)

// BuildService opens the repository and creates the service on top of it.
// The cleanup function closes database connections.
func (c *ServerConfig) BuildService(ctx context.Context, extra ...pages.Option) (pages.Service, func(), error) {
	repo, cleanup, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	svc, err := c.BuildServiceWithRepository(ctx, repo, extra...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

// BuildServiceWithRepository creates the service over repo, for tools that
// also read the repository directly.
func (c *ServerConfig) BuildServiceWithRepository(ctx context.Context, repo pages.Repository, extra ...pages.Option) (pages.Service, error) {
	opts := []pages.Option{pages.WithRepository(repo)}
	for _, bc := range c.StorageBackends {
		store, err := openBlobStore(ctx, bc)
		if err != nil {
			return nil, fmt.Errorf("failed to build storage backend %s: %w", bc.Name, err)
		}
		opts = append(opts, pages.WithBlobStore(bc.Name, store))
	}

	keys := objectkey.Generator(objectkey.NewShardedGenerator())
	if c.ObjectKeyGenerator == "flat" {
		keys = objectkey.NewFlatGenerator()
	}
	opts = append(opts,
		pages.WithDefaultBlobStore(c.DefaultStorageBackend),
		pages.WithImageBaseURL(c.ImageBaseURL),
		pages.WithKeyGenerator(keys),
	)
	if c.EnableEventLogging {
		logger := slog.Default()
		opts = append(opts,
			pages.WithEventSink(pages.NewLoggingEventSink(logger)),
			pages.WithHooks(pages.LoggingHooks(logger)),
		)
	}
	return pages.New(append(opts, extra...)...)
}

// JWTAuth returns the HS256 verifier for write routes, or nil without a
// secret.
func (c *ServerConfig) JWTAuth() *jwtauth.JWTAuth {
	if c.JWTSecret == "" {
		return nil
	}
	return jwtauth.New("HS256", []byte(c.JWTSecret), nil)
}

// BuildRepository opens the configured page store and migrates SQL schemas
// when AutoMigrate is set.
func (c *ServerConfig) BuildRepository(ctx context.Context) (pages.Repository, func(), error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), func() {}, nil
	case "sqlite":
		return c.openSQLite(ctx)
	case "postgres":
		return c.openPostgres(ctx)
	}
	return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
}

func (c *ServerConfig) openSQLite(ctx context.Context) (pages.Repository, func(), error) {
	repo, err := reposqlite.Open(ctx, c.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	closeRepo := func() {
		if err := repo.Close(); err != nil {
			slog.Warn("Failed to close sqlite repository", "path", c.SQLitePath, "error", err)
		}
	}
	if c.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			closeRepo()
			return nil, nil, err
		}
	}
	return repo, closeRepo, nil
}

func (c *ServerConfig) openPostgres(ctx context.Context) (pages.Repository, func(), error) {
	pool, err := newPool(ctx, c.DatabaseURL, c.DBSchema)
	if err != nil {
		return nil, nil, err
	}
	repo := repopg.NewWithPool(pool)
	if c.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return repo, pool.Close, nil
}

// newPool connects with schema first on every connection's search_path.
func newPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		setPath := "SET search_path TO " + pgx.Identifier{schema}.Sanitize()
		poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, setPath)
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// PingPostgres checks that databaseURL accepts connections within five
// seconds.
func PingPostgres(ctx context.Context, databaseURL, schema string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	pool, err := newPool(ctx, databaseURL, schema)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func openBlobStore(ctx context.Context, bc StorageBackendConfig) (pages.BlobStore, error) {
	s := settings(bc.Config)
	switch bc.Type {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   s.str("base_dir", "./data/images"),
			URLPrefix: s.str("url_prefix", ""),
		})
	case "s3":
		return s3storage.New(ctx, s3storage.Config{
			Region:                 s.str("region", "us-east-1"),
			Bucket:                 s.str("bucket", ""),
			AccessKeyID:            s.str("access_key_id", ""),
			SecretAccessKey:        s.str("secret_access_key", ""),
			Endpoint:               s.str("endpoint", ""),
			UsePathStyle:           s.flag("use_path_style"),
			PresignDuration:        s.num("presign_duration", 3600),
			PublicBaseURL:          s.str("public_base_url", ""),
			EnableSSE:              s.flag("enable_sse"),
			SSEAlgorithm:           s.str("sse_algorithm", "AES256"),
			SSEKMSKeyID:            s.str("sse_kms_key_id", ""),
			CreateBucketIfNotExist: s.flag("create_bucket_if_not_exist"),
		})
	}
	return nil, fmt.Errorf("unsupported storage backend type: %s", bc.Type)
}

// settings reads loosely typed backend values. Values from JSON or the
// environment may arrive as strings.
type settings map[string]interface{}

func (s settings) str(key, fallback string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return fallback
}

func (s settings) flag(key string) bool {
	switch v := s[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func (s settings) num(key string, fallback int) int {
	switch v := s[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
