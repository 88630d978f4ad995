package pages

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Service is the page library's entry point.
type Service interface {
	// Page operations
	CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error)
	UpdatePage(ctx context.Context, req UpdatePageRequest) (*Page, error)
	GetPage(ctx context.Context, id uuid.UUID) (*Page, error)
	GetPageBySlug(ctx context.Context, parentID *uuid.UUID, slug string) (*Page, error)
	ListPages(ctx context.Context, req ListPagesRequest) ([]*Page, error)
	DeletePage(ctx context.Context, id uuid.UUID) error

	// ValidateDraft decodes a draft without saving it
	ValidateDraft(ctx context.Context, pageType PageType, draft Draft) error

	// Publication
	PublishPage(ctx context.Context, id uuid.UUID) (*Page, error)
	UnpublishPage(ctx context.Context, id uuid.UUID) (*Page, error)
	SchedulePublish(ctx context.Context, req SchedulePublishRequest) (*Page, error)
	PublishScheduled(ctx context.Context) ([]*Page, error)

	// Revisions
	ListRevisions(ctx context.Context, pageID uuid.UUID) ([]*Revision, error)

	// ListLiveServices returns the live service pages ordered by title, as
	// shown in the home page services grid
	ListLiveServices(ctx context.Context) ([]*Page, error)

	// Image library
	UploadImage(ctx context.Context, req UploadImageRequest) (*Image, error)
	GetImage(ctx context.Context, id uuid.UUID) (*Image, error)
	DownloadImage(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Image, error)
	ImageURL(ctx context.Context, id uuid.UUID) (string, error)

	// Schemas returns the schema of every page type
	Schemas() SchemaSet
}

// Clock returns the current time.
type Clock func() time.Time
