// Package repotest holds the behaviour every pages.Repository implementation
// must share. Backend packages call Run from their own tests.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/ozeweb/oze-website/pkg/pages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty repository. It is called once per subtest.
type Factory func(t *testing.T) pages.Repository

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// NewRecord returns a draft service page record created at base+offset.
func NewRecord(slug string, offset time.Duration) *pages.PageRecord {
	at := base.Add(offset)
	return &pages.PageRecord{
		ID:     uuid.New(),
		Type:   pages.PageTypeService,
		Title:  "Usługa " + slug,
		Slug:   slug,
		Status: pages.PageStatusDraft,
		Content: map[string]any{
			"icon":              "sun",
			"short_description": "Opis",
			"content": []any{
				map[string]any{"id": "b1", "type": "heading", "value": "Zakres"},
				map[string]any{"type": "pricing", "value": map[string]any{
					"title": "Cennik",
					"items": []any{map[string]any{"name": "Przegląd", "price": "299 zł"}},
				}},
			},
		},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// Run exercises a repository implementation.
func Run(t *testing.T, newRepo Factory) {
	t.Run("CreateAndGetPage", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		rec := NewRecord("przeglad", 0)
		rec.RevisionID = ulid.Make().String()
		require.NoError(t, repo.CreatePage(ctx, rec))

		got, err := repo.GetPage(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Nil(t, got.ParentID)
		assert.Equal(t, rec.Type, got.Type)
		assert.Equal(t, rec.Title, got.Title)
		assert.Equal(t, rec.Status, got.Status)
		assert.Equal(t, rec.RevisionID, got.RevisionID)
		assert.Equal(t, rec.Content, got.Content)
		assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
		assert.Nil(t, got.GoLiveAt)
		assert.Nil(t, got.DeletedAt)

		got.Content["icon"] = "changed"
		again, err := repo.GetPage(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "sun", again.Content["icon"])

		_, err = repo.GetPage(ctx, uuid.New())
		assert.ErrorIs(t, err, pages.ErrPageNotFound)
	})

	t.Run("GetPageBySlug", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		parent := NewRecord("home", 0)
		parent.Type = pages.PageTypeHome
		parent.Content = map[string]any{}
		require.NoError(t, repo.CreatePage(ctx, parent))

		child := NewRecord("termowizja", time.Minute)
		child.ParentID = &parent.ID
		require.NoError(t, repo.CreatePage(ctx, child))

		got, err := repo.GetPageBySlug(ctx, &parent.ID, "termowizja")
		require.NoError(t, err)
		assert.Equal(t, child.ID, got.ID)
		require.NotNil(t, got.ParentID)
		assert.Equal(t, parent.ID, *got.ParentID)

		_, err = repo.GetPageBySlug(ctx, nil, "termowizja")
		assert.ErrorIs(t, err, pages.ErrPageNotFound)

		got, err = repo.GetPageBySlug(ctx, nil, "home")
		require.NoError(t, err)
		assert.Equal(t, parent.ID, got.ID)
	})

	t.Run("SlugConflict", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first := NewRecord("przeglad", 0)
		require.NoError(t, repo.CreatePage(ctx, first))
		assert.ErrorIs(t, repo.CreatePage(ctx, NewRecord("przeglad", time.Minute)), pages.ErrSlugConflict)

		second := NewRecord("termowizja", time.Minute)
		require.NoError(t, repo.CreatePage(ctx, second))
		second.Slug = "przeglad"
		assert.ErrorIs(t, repo.UpdatePage(ctx, second), pages.ErrSlugConflict)
	})

	t.Run("UpdatePage", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		rec := NewRecord("audyt", 0)
		require.NoError(t, repo.CreatePage(ctx, rec))

		goLive := base.Add(48 * time.Hour)
		rec.Title = "Audyt energetyczny"
		rec.Status = pages.PageStatusScheduled
		rec.GoLiveAt = &goLive
		rec.Content["icon"] = "bolt"
		rec.UpdatedAt = base.Add(time.Hour)
		require.NoError(t, repo.UpdatePage(ctx, rec))

		got, err := repo.GetPage(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "Audyt energetyczny", got.Title)
		assert.Equal(t, pages.PageStatusScheduled, got.Status)
		require.NotNil(t, got.GoLiveAt)
		assert.True(t, goLive.Equal(*got.GoLiveAt))
		assert.Equal(t, "bolt", got.Content["icon"])
		assert.True(t, rec.UpdatedAt.Equal(got.UpdatedAt))

		missing := NewRecord("brak", 0)
		assert.ErrorIs(t, repo.UpdatePage(ctx, missing), pages.ErrPageNotFound)
	})

	t.Run("DeletePage", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		rec := NewRecord("serwis", 0)
		require.NoError(t, repo.CreatePage(ctx, rec))
		require.NoError(t, repo.DeletePage(ctx, rec.ID))

		_, err := repo.GetPage(ctx, rec.ID)
		assert.ErrorIs(t, err, pages.ErrPageNotFound)
		_, err = repo.GetPageBySlug(ctx, nil, "serwis")
		assert.ErrorIs(t, err, pages.ErrPageNotFound)
		assert.ErrorIs(t, repo.DeletePage(ctx, rec.ID), pages.ErrPageNotFound)
		assert.ErrorIs(t, repo.UpdatePage(ctx, rec), pages.ErrPageNotFound)

		list, err := repo.ListPages(ctx, pages.PageFilter{})
		require.NoError(t, err)
		assert.Empty(t, list)

		list, err = repo.ListPages(ctx, pages.PageFilter{IncludeDeleted: true})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, pages.PageStatusDeleted, list[0].Status)
		assert.NotNil(t, list[0].DeletedAt)

		// A deleted page frees its slug.
		require.NoError(t, repo.CreatePage(ctx, NewRecord("serwis", time.Minute)))
	})

	t.Run("ListPages", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		home := NewRecord("home", 0)
		home.Type = pages.PageTypeHome
		home.Content = map[string]any{}
		require.NoError(t, repo.CreatePage(ctx, home))

		late := NewRecord("pozniej", 3*time.Minute)
		late.ParentID = &home.ID
		early := NewRecord("wczesniej", time.Minute)
		early.ParentID = &home.ID
		due := base.Add(time.Hour)
		scheduled := NewRecord("zaplanowana", 2*time.Minute)
		scheduled.Status = pages.PageStatusScheduled
		scheduled.GoLiveAt = &due
		for _, rec := range []*pages.PageRecord{late, early, scheduled} {
			require.NoError(t, repo.CreatePage(ctx, rec))
		}

		slugs := func(filter pages.PageFilter) []string {
			list, err := repo.ListPages(ctx, filter)
			require.NoError(t, err)
			var out []string
			for _, rec := range list {
				out = append(out, rec.Slug)
			}
			return out
		}

		assert.Equal(t, []string{"home", "wczesniej", "zaplanowana", "pozniej"}, slugs(pages.PageFilter{}))
		assert.Equal(t, []string{"wczesniej", "zaplanowana", "pozniej"}, slugs(pages.PageFilter{Type: pages.PageTypeService}))
		assert.Equal(t, []string{"wczesniej", "pozniej"}, slugs(pages.PageFilter{ParentID: &home.ID}))
		assert.Equal(t, []string{"zaplanowana"}, slugs(pages.PageFilter{Status: pages.PageStatusScheduled}))

		before := due.Add(-time.Second)
		assert.Empty(t, slugs(pages.PageFilter{Status: pages.PageStatusScheduled, DueBefore: &before}))
		assert.Equal(t, []string{"zaplanowana"}, slugs(pages.PageFilter{Status: pages.PageStatusScheduled, DueBefore: &due}))
	})

	t.Run("Revisions", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		rec := NewRecord("przeglad", 0)
		require.NoError(t, repo.CreatePage(ctx, rec))

		var ids []string
		for i, status := range []pages.PageStatus{pages.PageStatusDraft, pages.PageStatusDraft, pages.PageStatusLive} {
			rev := &pages.Revision{
				ID:        ulid.Make().String(),
				PageID:    rec.ID,
				Status:    status,
				Title:     rec.Title,
				Slug:      rec.Slug,
				Content:   rec.Content,
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}
			require.NoError(t, repo.CreateRevision(ctx, rev))
			ids = append(ids, rev.ID)
		}

		revs, err := repo.ListRevisions(ctx, rec.ID)
		require.NoError(t, err)
		require.Len(t, revs, 3)
		assert.Equal(t, ids[2], revs[0].ID)
		assert.Equal(t, ids[0], revs[2].ID)
		assert.Equal(t, pages.PageStatusLive, revs[0].Status)
		assert.Equal(t, rec.Content, revs[0].Content)

		revs, err = repo.ListRevisions(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, revs)
	})

	t.Run("Images", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		img := &pages.Image{
			ID:             uuid.New(),
			Title:          "Dach",
			FileName:       "dach.png",
			MimeType:       "image/png",
			Size:           2048,
			ObjectKey:      "images/original/ab/cdef_dach.png",
			StorageBackend: "fs",
			CreatedAt:      base,
		}
		require.NoError(t, repo.CreateImage(ctx, img))

		got, err := repo.GetImage(ctx, img.ID)
		require.NoError(t, err)
		assert.Equal(t, img.Title, got.Title)
		assert.Equal(t, img.ObjectKey, got.ObjectKey)
		assert.Equal(t, img.Size, got.Size)
		assert.Equal(t, img.StorageBackend, got.StorageBackend)
		assert.True(t, img.CreatedAt.Equal(got.CreatedAt))

		_, err = repo.GetImage(ctx, uuid.New())
		assert.ErrorIs(t, err, pages.ErrImageNotFound)
	})
}
