package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ozeweb/oze-website/pkg/pages"
	memoryrepo "github.com/ozeweb/oze-website/pkg/pages/repo/memory"
	memorystorage "github.com/ozeweb/oze-website/pkg/pages/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) pages.Service {
	t.Helper()
	svc, err := pages.New(
		pages.WithRepository(memoryrepo.New()),
		pages.WithBlobStore("memory", memorystorage.New()),
	)
	require.NoError(t, err)
	return svc
}

func serviceFixture(slug, description string) map[string]any {
	return map[string]any{
		"type":  "service",
		"title": "Przegląd instalacji",
		"slug":  slug,
		"fields": map[string]any{
			"icon":              "bolt",
			"short_description": description,
		},
	}
}

func writeFixture(t *testing.T, dir, name string, fx map[string]any) string {
	t.Helper()
	data, err := json.Marshal(fx)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestImportFixture_CreateThenUpdate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	dir := t.TempDir()

	path := writeFixture(t, dir, "przeglad.json", serviceFixture("przeglad", "Pierwsza wersja"))
	fx, err := readFixture(path)
	require.NoError(t, err)

	res, err := importFixture(ctx, svc, fx, false)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, pages.PageStatusDraft, res.Page.Status)

	writeFixture(t, dir, "przeglad.json", serviceFixture("przeglad", "Druga wersja"))
	fx, err = readFixture(path)
	require.NoError(t, err)

	updated, err := importFixture(ctx, svc, fx, true)
	require.NoError(t, err)
	assert.False(t, updated.Created)
	assert.Equal(t, res.Page.ID, updated.Page.ID)
	assert.Equal(t, pages.PageStatusLive, updated.Page.Status)
	assert.Equal(t, "Druga wersja", updated.Page.Field("short_description").Text())

	// importing a live page again keeps it live
	again, err := importFixture(ctx, svc, fx, true)
	require.NoError(t, err)
	assert.Equal(t, pages.PageStatusLive, again.Page.Status)
}

func TestImportFixture_Parent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	fx := &Fixture{Type: pages.PageTypeService, ParentSlug: "brak"}
	fx.Title = "Termowizja"
	fx.Slug = "termowizja"
	_, err := importFixture(ctx, svc, fx, false)
	assert.ErrorIs(t, err, pages.ErrPageNotFound)
}

func TestImportFixture_TypeMismatch(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	dir := t.TempDir()

	fx, err := readFixture(writeFixture(t, dir, "a.json", serviceFixture("kontakt", "Opis")))
	require.NoError(t, err)
	_, err = importFixture(ctx, svc, fx, false)
	require.NoError(t, err)

	contact := &Fixture{Type: pages.PageTypeContact}
	contact.Title = "Kontakt"
	contact.Slug = "kontakt"
	_, err = importFixture(ctx, svc, contact, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a service page")
}

func TestReadFixture_Errors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err := readFixture(bad)
	assert.ErrorContains(t, err, "invalid JSON")

	untyped := writeFixture(t, dir, "untyped.json", map[string]any{"title": "x", "slug": "x"})
	_, err = readFixture(untyped)
	assert.ErrorContains(t, err, "missing page type")
}

func TestValidateFixtures(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "1-ok.json", serviceFixture("ok", "Opis"))
	broken := serviceFixture("broken", "Opis")
	delete(broken["fields"].(map[string]any), "icon")
	writeFixture(t, dir, "2-broken.json", broken)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	paths, err := fixturePaths([]string{dir})
	require.NoError(t, err)
	require.Len(t, paths, 2)

	var out bytes.Buffer
	err = validateFixtures(context.Background(), &out, pages.SiteSchemas(), paths)
	assert.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out.String(), "ok    "+paths[0])
	assert.Contains(t, out.String(), "FAIL  "+paths[1])
	assert.Contains(t, out.String(), "icon: ")
	assert.Contains(t, out.String(), "(missing_field)")
}

func TestSchemaCommand(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"schema", "service"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "service (Strona usługi)")
	assert.Contains(t, out.String(), "short_description")

	out.Reset()
	cmd = NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"schema", "home", "--defaults"})
	require.NoError(t, cmd.Execute())
	var defaults map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &defaults))
	assert.Equal(t, []any{}, defaults["why_us_items"])

	cmd = NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"schema", "blog"})
	assert.ErrorIs(t, cmd.Execute(), pages.ErrUnknownPageType)
}

func TestWatchFixtures(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		batches [][]string
	)
	done := make(chan error, 1)
	go func() {
		done <- watchFixtures(ctx, []string{dir}, func(batch []string) {
			names := make([]string, len(batch))
			for i, path := range batch {
				names[i] = filepath.Base(path)
			}
			mu.Lock()
			batches = append(batches, names)
			mu.Unlock()
		})
	}()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	writeFixture(t, dir, "przeglad.json", serviceFixture("przeglad", "Opis"))
	writeFixture(t, dir, "audyt.json", serviceFixture("audyt", "Opis"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	seen := func() []string {
		var all []string
		for _, b := range batches {
			all = append(all, b...)
		}
		return all
	}
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen()) >= 2
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"audyt.json", "przeglad.json"}, seen())
	for _, b := range batches {
		assert.IsNonDecreasing(t, b)
	}
}

func TestOrderFixtures(t *testing.T) {
	dir := t.TempDir()
	child := serviceFixture("przeglad", "Opis")
	child["parent_slug"] = "oferta"
	childPath := writeFixture(t, dir, "a-przeglad.json", child)
	parentPath := writeFixture(t, dir, "z-oferta.json", serviceFixture("oferta", "Opis"))
	otherPath := writeFixture(t, dir, "m-audyt.json", serviceFixture("audyt", "Opis"))
	badPath := filepath.Join(dir, "b-bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte("{"), 0o644))

	in := []string{childPath, badPath, otherPath, parentPath}
	assert.Equal(t, []string{badPath, otherPath, parentPath, childPath}, orderFixtures(in))
	assert.Equal(t, []string{childPath, badPath, otherPath, parentPath}, in)

	svc := newService(t)
	ctx := context.Background()
	for _, path := range orderFixtures([]string{childPath, parentPath}) {
		fx, err := readFixture(path)
		require.NoError(t, err)
		_, err = importFixture(ctx, svc, fx, false)
		require.NoError(t, err, path)
	}
	parent, err := svc.GetPageBySlug(ctx, nil, "oferta")
	require.NoError(t, err)
	page, err := svc.GetPageBySlug(ctx, &parent.ID, "przeglad")
	require.NoError(t, err)
	assert.Equal(t, parent.ID, *page.ParentID)
}
