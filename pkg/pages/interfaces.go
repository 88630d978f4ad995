package pages

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore stores image files.
type BlobStore interface {
	// Upload stores the reader's content under objectKey
	Upload(ctx context.Context, objectKey string, reader io.Reader, params UploadParams) error

	// Download opens the object for reading
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the object
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)

	// URL returns a URL the public site can serve the object from, or ""
	// when the backend cannot address objects directly.
	URL(ctx context.Context, objectKey string) (string, error)
}

// Repository persists pages, their revisions and the image library.
type Repository interface {
	// Page operations
	CreatePage(ctx context.Context, page *PageRecord) error
	GetPage(ctx context.Context, id uuid.UUID) (*PageRecord, error)
	GetPageBySlug(ctx context.Context, parentID *uuid.UUID, slug string) (*PageRecord, error)
	UpdatePage(ctx context.Context, page *PageRecord) error
	DeletePage(ctx context.Context, id uuid.UUID) error
	// ListPages returns matching pages oldest first
	ListPages(ctx context.Context, filter PageFilter) ([]*PageRecord, error)

	// Revision operations
	CreateRevision(ctx context.Context, rev *Revision) error
	ListRevisions(ctx context.Context, pageID uuid.UUID) ([]*Revision, error)

	// Image operations
	CreateImage(ctx context.Context, img *Image) error
	GetImage(ctx context.Context, id uuid.UUID) (*Image, error)
}

// EventSink receives page lifecycle events.
type EventSink interface {
	// PageCreated is fired when a page is created
	PageCreated(ctx context.Context, page *Page) error

	// PageUpdated is fired when a page's content changes
	PageUpdated(ctx context.Context, page *Page) error

	// PagePublished is fired when a page goes live
	PagePublished(ctx context.Context, page *Page) error

	// PageUnpublished is fired when a live or scheduled page returns to draft
	PageUnpublished(ctx context.Context, page *Page) error

	// PageDeleted is fired when a page is deleted
	PageDeleted(ctx context.Context, pageID uuid.UUID) error

	// ImageUploaded is fired when an image is added to the library
	ImageUploaded(ctx context.Context, img *Image) error
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	MimeType string
	Size     int64
}

// PageFilter selects pages in ListPages. Zero fields do not filter.
type PageFilter struct {
	Type     PageType
	ParentID *uuid.UUID
	Status   PageStatus
	// DueBefore selects scheduled pages whose go-live time is not after it.
	DueBefore *time.Time
	// IncludeDeleted also returns soft deleted pages.
	IncludeDeleted bool
}
