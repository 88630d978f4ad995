package pages

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/ozeweb/oze-website/pkg/pages/objectkey"
)

// ErrNotAnImage indicates an upload that is not an image file
var ErrNotAnImage = errors.New("file is not an image")

// service implements the Service interface
type service struct {
	repository       Repository
	blobStores       map[string]BlobStore
	defaultBlobStore string
	eventSink        EventSink
	hooks            *Hooks
	schemas          SchemaSet
	keyGenerator     objectkey.Generator
	now              Clock
	imageBaseURL     string
	logger           *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend for image files
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
	}
}

// WithDefaultBlobStore selects the backend used for uploads that do not name one
func WithDefaultBlobStore(name string) Option {
	return func(s *service) {
		s.defaultBlobStore = name
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithHooks adds lifecycle hooks. It may be given more than once.
func WithHooks(hooks *Hooks) Option {
	return func(s *service) {
		s.hooks.Merge(hooks)
	}
}

// WithSchemas replaces the site schemas
func WithSchemas(schemas SchemaSet) Option {
	return func(s *service) {
		s.schemas = schemas
	}
}

// WithKeyGenerator sets the object key strategy for image files
func WithKeyGenerator(g objectkey.Generator) Option {
	return func(s *service) {
		s.keyGenerator = g
	}
}

// WithClock sets the time source used for timestamps and scheduling
func WithClock(c Clock) Option {
	return func(s *service) {
		s.now = c
	}
}

// WithImageBaseURL sets the URL prefix of image downloads served by the API,
// used when a blob store cannot address objects directly
func WithImageBaseURL(base string) Option {
	return func(s *service) {
		s.imageBaseURL = strings.TrimRight(base, "/")
	}
}

// WithLogger sets the logger for non fatal failures
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores:   make(map[string]BlobStore),
		hooks:        &Hooks{},
		imageBaseURL: "/api/v1/images",
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.schemas == nil {
		s.schemas = SiteSchemas()
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}
	if s.keyGenerator == nil {
		s.keyGenerator = objectkey.NewShardedGenerator()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.defaultBlobStore == "" && len(s.blobStores) == 1 {
		for name := range s.blobStores {
			s.defaultBlobStore = name
		}
	}
	if s.defaultBlobStore != "" {
		if _, ok := s.blobStores[s.defaultBlobStore]; !ok {
			return nil, fmt.Errorf("default blob store %q: %w", s.defaultBlobStore, ErrStorageBackendNotFound)
		}
	}

	return s, nil
}

func (s *service) Schemas() SchemaSet {
	return s.schemas
}

// Page operations

func (s *service) CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error) {
	schema, err := s.schemas.Get(req.Type)
	if err != nil {
		return nil, s.fail(ctx, "create", err)
	}
	page, err := schema.Decode(req.Draft)
	if err != nil {
		return nil, s.fail(ctx, "create", err)
	}
	if req.ParentID != nil {
		if _, err := s.repository.GetPage(ctx, *req.ParentID); err != nil {
			return nil, s.fail(ctx, "create", fmt.Errorf("parent page %s: %w", *req.ParentID, err))
		}
	}

	now := s.now()
	page.ID = uuid.New()
	page.ParentID = req.ParentID
	page.Status = PageStatusDraft
	page.CreatedAt = now
	page.UpdatedAt = now

	if err := s.prepareSave(ctx, schema, page); err != nil {
		return nil, s.fail(ctx, "create", err)
	}
	rev := s.newRevision(schema, page)

	if err := s.repository.CreatePage(ctx, schema.Record(page)); err != nil {
		return nil, s.fail(ctx, "create", &PageError{PageID: page.ID, Op: "create", Err: err})
	}
	if err := s.repository.CreateRevision(ctx, rev); err != nil {
		// A page without a revision cannot be published; release its slug.
		if derr := s.repository.DeletePage(ctx, page.ID); derr != nil {
			s.logger.Warn("Failed to roll back page", "page_id", page.ID, "error", derr)
		}
		return nil, s.fail(ctx, "create", &PageError{PageID: page.ID, Op: "create_revision", Err: err})
	}

	if err := s.eventSink.PageCreated(ctx, page); err != nil {
		s.logger.Warn("Event sink failed", "event", "page_created", "page_id", page.ID, "error", err)
	}
	if err := s.hooks.executeAfterPageSave(ctx, page); err != nil {
		s.logger.Warn("After save hook failed", "page_id", page.ID, "error", err)
	}
	return page, nil
}

func (s *service) UpdatePage(ctx context.Context, req UpdatePageRequest) (*Page, error) {
	rec, err := s.repository.GetPage(ctx, req.ID)
	if err != nil {
		return nil, s.fail(ctx, "update", &PageError{PageID: req.ID, Op: "update", Err: err})
	}
	if ok, err := canEdit(rec.Status); !ok {
		return nil, s.fail(ctx, "update", &PageError{PageID: req.ID, Op: "update", Err: err})
	}
	schema, err := s.schemas.Get(rec.Type)
	if err != nil {
		return nil, s.fail(ctx, "update", err)
	}
	page, err := schema.Decode(req.Draft)
	if err != nil {
		return nil, s.fail(ctx, "update", err)
	}

	page.ID = rec.ID
	page.ParentID = rec.ParentID
	page.Status = rec.Status
	page.GoLiveAt = rec.GoLiveAt
	page.PublishedAt = rec.PublishedAt
	page.CreatedAt = rec.CreatedAt
	page.UpdatedAt = s.now()

	if err := s.prepareSave(ctx, schema, page); err != nil {
		return nil, s.fail(ctx, "update", err)
	}
	rev := s.newRevision(schema, page)

	if err := s.repository.UpdatePage(ctx, schema.Record(page)); err != nil {
		return nil, s.fail(ctx, "update", &PageError{PageID: page.ID, Op: "update", Err: err})
	}
	if err := s.repository.CreateRevision(ctx, rev); err != nil {
		return nil, s.fail(ctx, "update", &PageError{PageID: page.ID, Op: "create_revision", Err: err})
	}

	if err := s.eventSink.PageUpdated(ctx, page); err != nil {
		s.logger.Warn("Event sink failed", "event", "page_updated", "page_id", page.ID, "error", err)
	}
	if err := s.hooks.executeAfterPageSave(ctx, page); err != nil {
		s.logger.Warn("After save hook failed", "page_id", page.ID, "error", err)
	}
	return page, nil
}

func (s *service) GetPage(ctx context.Context, id uuid.UUID) (*Page, error) {
	rec, err := s.repository.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.load(rec)
}

func (s *service) GetPageBySlug(ctx context.Context, parentID *uuid.UUID, slug string) (*Page, error) {
	rec, err := s.repository.GetPageBySlug(ctx, parentID, slug)
	if err != nil {
		return nil, err
	}
	return s.load(rec)
}

func (s *service) ListPages(ctx context.Context, req ListPagesRequest) ([]*Page, error) {
	recs, err := s.repository.ListPages(ctx, PageFilter{
		Type:     req.Type,
		ParentID: req.ParentID,
		Status:   req.Status,
	})
	if err != nil {
		return nil, err
	}
	return s.loadAll(recs), nil
}

func (s *service) DeletePage(ctx context.Context, id uuid.UUID) error {
	rec, err := s.repository.GetPage(ctx, id)
	if err != nil {
		return s.fail(ctx, "delete", &PageError{PageID: id, Op: "delete", Err: err})
	}
	if ok, err := canDelete(rec.Status); !ok {
		return s.fail(ctx, "delete", &PageError{PageID: id, Op: "delete", Err: err})
	}
	if err := s.repository.DeletePage(ctx, id); err != nil {
		return s.fail(ctx, "delete", &PageError{PageID: id, Op: "delete", Err: err})
	}

	if err := s.eventSink.PageDeleted(ctx, id); err != nil {
		s.logger.Warn("Event sink failed", "event", "page_deleted", "page_id", id, "error", err)
	}
	return nil
}

func (s *service) ValidateDraft(ctx context.Context, pageType PageType, draft Draft) error {
	schema, err := s.schemas.Get(pageType)
	if err != nil {
		return err
	}
	_, err = schema.Decode(draft)
	return err
}

// Publication

func (s *service) PublishPage(ctx context.Context, id uuid.UUID) (*Page, error) {
	rec, err := s.repository.GetPage(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "publish", &PageError{PageID: id, Op: "publish", Err: err})
	}
	page, err := s.publish(ctx, rec)
	if err != nil {
		return nil, s.fail(ctx, "publish", err)
	}
	return page, nil
}

func (s *service) publish(ctx context.Context, rec *PageRecord) (*Page, error) {
	if ok, err := canPublish(rec.Status); !ok {
		return nil, &PageError{PageID: rec.ID, Op: "publish", Err: err}
	}
	schema, err := s.schemas.Get(rec.Type)
	if err != nil {
		return nil, err
	}
	page, err := schema.Load(rec)
	if err != nil {
		return nil, &PageError{PageID: rec.ID, Op: "publish", Err: err}
	}
	if err := s.hooks.executeBeforePublish(ctx, page); err != nil {
		return nil, err
	}

	now := s.now()
	page.Status = PageStatusLive
	page.PublishedAt = &now
	page.GoLiveAt = nil
	page.UpdatedAt = now
	rev := s.newRevision(schema, page)

	if err := s.repository.UpdatePage(ctx, schema.Record(page)); err != nil {
		return nil, &PageError{PageID: page.ID, Op: "publish", Err: err}
	}
	if err := s.repository.CreateRevision(ctx, rev); err != nil {
		return nil, &PageError{PageID: page.ID, Op: "create_revision", Err: err}
	}

	if err := s.eventSink.PagePublished(ctx, page); err != nil {
		s.logger.Warn("Event sink failed", "event", "page_published", "page_id", page.ID, "error", err)
	}
	if err := s.hooks.executeAfterPublish(ctx, page); err != nil {
		s.logger.Warn("After publish hook failed", "page_id", page.ID, "error", err)
	}
	return page, nil
}

func (s *service) UnpublishPage(ctx context.Context, id uuid.UUID) (*Page, error) {
	rec, err := s.repository.GetPage(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "unpublish", &PageError{PageID: id, Op: "unpublish", Err: err})
	}
	if ok, err := canUnpublish(rec.Status); !ok {
		return nil, s.fail(ctx, "unpublish", &PageError{PageID: id, Op: "unpublish", Err: err})
	}

	rec.Status = PageStatusDraft
	rec.GoLiveAt = nil
	rec.UpdatedAt = s.now()
	if err := s.repository.UpdatePage(ctx, rec); err != nil {
		return nil, s.fail(ctx, "unpublish", &PageError{PageID: id, Op: "unpublish", Err: err})
	}

	page, err := s.load(rec)
	if err != nil {
		return nil, err
	}
	if err := s.eventSink.PageUnpublished(ctx, page); err != nil {
		s.logger.Warn("Event sink failed", "event", "page_unpublished", "page_id", page.ID, "error", err)
	}
	return page, nil
}

func (s *service) SchedulePublish(ctx context.Context, req SchedulePublishRequest) (*Page, error) {
	rec, err := s.repository.GetPage(ctx, req.ID)
	if err != nil {
		return nil, s.fail(ctx, "schedule", &PageError{PageID: req.ID, Op: "schedule", Err: err})
	}
	if ok, err := canSchedule(rec.Status); !ok {
		return nil, s.fail(ctx, "schedule", &PageError{PageID: req.ID, Op: "schedule", Err: err})
	}
	if !req.GoLiveAt.After(s.now()) {
		page, err := s.publish(ctx, rec)
		if err != nil {
			return nil, s.fail(ctx, "schedule", err)
		}
		return page, nil
	}

	schema, err := s.schemas.Get(rec.Type)
	if err != nil {
		return nil, s.fail(ctx, "schedule", err)
	}
	page, err := schema.Load(rec)
	if err != nil {
		return nil, s.fail(ctx, "schedule", &PageError{PageID: rec.ID, Op: "schedule", Err: err})
	}

	goLive := req.GoLiveAt.UTC()
	page.Status = PageStatusScheduled
	page.GoLiveAt = &goLive
	page.UpdatedAt = s.now()
	rev := s.newRevision(schema, page)

	if err := s.repository.UpdatePage(ctx, schema.Record(page)); err != nil {
		return nil, s.fail(ctx, "schedule", &PageError{PageID: page.ID, Op: "schedule", Err: err})
	}
	if err := s.repository.CreateRevision(ctx, rev); err != nil {
		return nil, s.fail(ctx, "schedule", &PageError{PageID: page.ID, Op: "create_revision", Err: err})
	}

	if err := s.eventSink.PageUpdated(ctx, page); err != nil {
		s.logger.Warn("Event sink failed", "event", "page_updated", "page_id", page.ID, "error", err)
	}
	return page, nil
}

// PublishScheduled publishes every scheduled page whose go-live time has
// passed. Pages that fail are skipped; their errors are joined.
func (s *service) PublishScheduled(ctx context.Context) ([]*Page, error) {
	now := s.now()
	recs, err := s.repository.ListPages(ctx, PageFilter{Status: PageStatusScheduled, DueBefore: &now})
	if err != nil {
		return nil, s.fail(ctx, "publish_scheduled", err)
	}

	var published []*Page
	var errs []error
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		page, err := s.publish(ctx, rec)
		if err != nil {
			s.hooks.executeOnError(ctx, "publish_scheduled", err)
			errs = append(errs, err)
			continue
		}
		published = append(published, page)
	}
	return published, errors.Join(errs...)
}

func (s *service) ListRevisions(ctx context.Context, pageID uuid.UUID) ([]*Revision, error) {
	if _, err := s.repository.GetPage(ctx, pageID); err != nil {
		return nil, err
	}
	return s.repository.ListRevisions(ctx, pageID)
}

func (s *service) ListLiveServices(ctx context.Context) ([]*Page, error) {
	pages, err := s.ListPages(ctx, ListPagesRequest{Type: PageTypeService, Status: PageStatusLive})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(pages, func(i, j int) bool {
		return strings.ToLower(pages[i].Title) < strings.ToLower(pages[j].Title)
	})
	return pages, nil
}

// Image library

func (s *service) UploadImage(ctx context.Context, req UploadImageRequest) (*Image, error) {
	name := req.Backend
	if name == "" {
		name = s.defaultBlobStore
	}
	store, err := s.getBackend(name)
	if err != nil {
		return nil, s.fail(ctx, "upload_image", err)
	}
	if req.Reader == nil {
		return nil, s.fail(ctx, "upload_image", fmt.Errorf("%w: no file", ErrUploadFailed))
	}

	br := bufio.NewReader(req.Reader)
	mimeType := req.MimeType
	if mimeType == "" || mimeType == "application/octet-stream" {
		head, _ := br.Peek(512)
		mimeType = http.DetectContentType(head)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, s.fail(ctx, "upload_image", fmt.Errorf("%w: %s", ErrNotAnImage, mimeType))
	}

	img := &Image{
		ID:             uuid.New(),
		Title:          req.Title,
		FileName:       req.FileName,
		MimeType:       mimeType,
		StorageBackend: name,
		CreatedAt:      s.now(),
	}
	if img.Title == "" {
		img.Title = req.FileName
	}
	img.ObjectKey = s.keyGenerator.GenerateKey(img.ID, &objectkey.KeyMetadata{
		FileName: req.FileName,
		MimeType: mimeType,
	})

	counter := &countingReader{r: br}
	if err := store.Upload(ctx, img.ObjectKey, counter, UploadParams{MimeType: mimeType, Size: req.Size}); err != nil {
		return nil, s.fail(ctx, "upload_image", &StorageError{
			Backend: name,
			Key:     img.ObjectKey,
			Op:      "upload",
			Err:     fmt.Errorf("%w: %w", ErrUploadFailed, err),
		})
	}
	img.Size = counter.n

	if err := s.repository.CreateImage(ctx, img); err != nil {
		if derr := store.Delete(ctx, img.ObjectKey); derr != nil {
			s.logger.Warn("Failed to remove orphaned image file", "backend", name, "key", img.ObjectKey, "error", derr)
		}
		return nil, s.fail(ctx, "upload_image", err)
	}
	if err := s.eventSink.ImageUploaded(ctx, img); err != nil {
		s.logger.Warn("Event sink failed", "event", "image_uploaded", "image_id", img.ID, "error", err)
	}
	return img, nil
}

func (s *service) GetImage(ctx context.Context, id uuid.UUID) (*Image, error) {
	return s.repository.GetImage(ctx, id)
}

func (s *service) DownloadImage(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Image, error) {
	img, err := s.repository.GetImage(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	store, err := s.getBackend(img.StorageBackend)
	if err != nil {
		return nil, nil, err
	}
	rc, err := store.Download(ctx, img.ObjectKey)
	if err != nil {
		return nil, nil, &StorageError{
			Backend: img.StorageBackend,
			Key:     img.ObjectKey,
			Op:      "download",
			Err:     fmt.Errorf("%w: %w", ErrDownloadFailed, err),
		}
	}
	return rc, img, nil
}

// ImageURL returns the public URL of an image: the blob store's own URL when
// it has one, the API download route otherwise.
func (s *service) ImageURL(ctx context.Context, id uuid.UUID) (string, error) {
	img, err := s.repository.GetImage(ctx, id)
	if err != nil {
		return "", err
	}
	if store, err := s.getBackend(img.StorageBackend); err == nil {
		if u, err := store.URL(ctx, img.ObjectKey); err == nil && u != "" {
			return u, nil
		}
	}
	return fmt.Sprintf("%s/%s/download", s.imageBaseURL, img.ID), nil
}

// helpers

func (s *service) getBackend(name string) (BlobStore, error) {
	store, ok := s.blobStores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStorageBackendNotFound, name)
	}
	return store, nil
}

// prepareSave assigns block ids, runs the before save hooks and checks the
// result against the schema and the page's siblings.
func (s *service) prepareSave(ctx context.Context, schema *Schema, page *Page) error {
	assignEntryIDs(page)
	if err := s.hooks.executeBeforePageSave(ctx, page); err != nil {
		return err
	}
	if err := schema.Validate(page); err != nil {
		return err
	}
	return s.checkSlug(ctx, page)
}

func (s *service) checkSlug(ctx context.Context, page *Page) error {
	other, err := s.repository.GetPageBySlug(ctx, page.ParentID, page.Slug)
	switch {
	case errors.Is(err, ErrPageNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != page.ID:
		return fmt.Errorf("%w: %q", ErrSlugConflict, page.Slug)
	}
	return nil
}

func (s *service) newRevision(schema *Schema, page *Page) *Revision {
	page.RevisionID = ulid.Make().String()
	return &Revision{
		ID:        page.RevisionID,
		PageID:    page.ID,
		Status:    page.Status,
		Title:     page.Title,
		Slug:      page.Slug,
		Content:   schema.Encode(page),
		CreatedAt: page.UpdatedAt,
	}
}

func (s *service) load(rec *PageRecord) (*Page, error) {
	schema, err := s.schemas.Get(rec.Type)
	if err != nil {
		return nil, err
	}
	page, err := schema.Load(rec)
	if err != nil {
		return nil, &PageError{PageID: rec.ID, Op: "load", Err: err}
	}
	return page, nil
}

func (s *service) loadAll(recs []*PageRecord) []*Page {
	out := make([]*Page, 0, len(recs))
	for _, rec := range recs {
		page, err := s.load(rec)
		if err != nil {
			s.logger.Warn("Skipping page that does not match its schema", "page_id", rec.ID, "error", err)
			continue
		}
		out = append(out, page)
	}
	return out
}

func (s *service) fail(ctx context.Context, op string, err error) error {
	s.hooks.executeOnError(ctx, op, err)
	return err
}

func assignEntryIDs(page *Page) {
	for _, stream := range page.Streams {
		for i := range stream {
			if stream[i].ID == "" {
				stream[i].ID = uuid.NewString()
			}
		}
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
