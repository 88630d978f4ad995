package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ozeweb/oze-website/pkg/pages"
	"github.com/ozeweb/oze-website/pkg/pages/repo/repotest"
	"github.com/ozeweb/oze-website/pkg/pages/repo/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, path string) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repotest.Run(t, func(t *testing.T) pages.Repository {
		return open(t, ":memory:")
	})
}

func TestSQLiteRepository_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "pages.db")
	ctx := context.Background()

	repo := open(t, path)
	rec := repotest.NewRecord("przeglad", 0)
	require.NoError(t, repo.CreatePage(ctx, rec))
	require.NoError(t, repo.Close())

	reopened := open(t, path)
	require.NoError(t, reopened.Migrate(ctx))
	got, err := reopened.GetPage(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Content, got.Content)
}
