package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/ozeweb/oze-website/pkg/pages"
	memorystorage "github.com/ozeweb/oze-website/pkg/pages/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_Lifecycle(t *testing.T) {
	store := memorystorage.New()
	ctx := context.Background()
	const key = "images/original/7f/3a9c_falownik.jpg"

	require.NoError(t, store.Upload(ctx, key, strings.NewReader("jpeg-data"), pages.UploadParams{MimeType: "image/jpeg"}))

	meta, err := store.GetObjectMeta(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key, meta.Key)
	assert.Equal(t, int64(9), meta.Size)
	assert.Equal(t, "image/jpeg", meta.ContentType)
	assert.Len(t, meta.ETag, 32)
	assert.False(t, meta.UpdatedAt.IsZero())

	rc, err := store.Download(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "jpeg-data", string(got))

	u, err := store.URL(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, u, "served through the API")

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Download(ctx, key)
	assert.ErrorIs(t, err, pages.ErrObjectNotFound)
	_, err = store.GetObjectMeta(ctx, key)
	assert.ErrorIs(t, err, pages.ErrObjectNotFound)
	assert.ErrorIs(t, store.Delete(ctx, key), pages.ErrObjectNotFound)
}

func TestBackend_Upload(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		want     string
	}{
		{"given type", "image/webp", "image/webp"},
		{"no type", "", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memorystorage.New()
			ctx := context.Background()
			require.NoError(t, store.Upload(ctx, "k", strings.NewReader("x"), pages.UploadParams{MimeType: tt.mimeType}))

			meta, err := store.GetObjectMeta(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, tt.want, meta.ContentType)
		})
	}
}

func TestBackend_SameContentSameETag(t *testing.T) {
	store := memorystorage.New()
	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, "a", strings.NewReader("panel"), pages.UploadParams{}))
	require.NoError(t, store.Upload(ctx, "b", strings.NewReader("panel"), pages.UploadParams{}))

	a, err := store.GetObjectMeta(ctx, "a")
	require.NoError(t, err)
	b, err := store.GetObjectMeta(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, a.ETag, b.ETag)
}
