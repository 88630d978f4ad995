package pages

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// CreatePageRequest contains parameters for creating a page
type CreatePageRequest struct {
	Type     PageType
	ParentID *uuid.UUID
	Draft    Draft
}

// UpdatePageRequest replaces the content of a page
type UpdatePageRequest struct {
	ID    uuid.UUID
	Draft Draft
}

// ListPagesRequest contains parameters for listing pages
type ListPagesRequest struct {
	Type     PageType
	ParentID *uuid.UUID
	Status   PageStatus
}

// SchedulePublishRequest schedules a page to go live at GoLiveAt
type SchedulePublishRequest struct {
	ID       uuid.UUID
	GoLiveAt time.Time
}

// UploadImageRequest contains an image file to add to the library
type UploadImageRequest struct {
	Title    string
	FileName string
	MimeType string
	Size     int64
	Reader   io.Reader
	// Backend selects a registered blob store; empty uses the default.
	Backend string
}
