package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ozeweb/oze-website/pkg/pages"
	"github.com/ozeweb/oze-website/pkg/pages/repo/postgres"
	"github.com/ozeweb/oze-website/pkg/pages/repo/repotest"
	"github.com/stretchr/testify/require"
)

// newTestPool connects to OZE_TEST_DATABASE_URL or skips the test.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	connString := os.Getenv("OZE_TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("OZE_TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, pool.Ping(ctx), "Failed to ping test database")
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresRepository(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	repo := postgres.NewWithPool(pool)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "migrations must be repeatable")

	repotest.Run(t, func(t *testing.T) pages.Repository {
		_, err := pool.Exec(ctx, `TRUNCATE page_revisions, images, pages`)
		require.NoError(t, err)
		return repo
	})
}
