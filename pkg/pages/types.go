package pages

import (
	"time"

	"github.com/google/uuid"
	"github.com/ozeweb/oze-website/pkg/blocks"
)

// PageType is the closed set of page kinds the site is built from.
type PageType string

// Page types.
const (
	PageTypeHome    PageType = "home"
	PageTypeService PageType = "service"
	PageTypeContact PageType = "contact"
)

// PageTypes lists every page type in display order.
func PageTypes() []PageType {
	return []PageType{PageTypeHome, PageTypeService, PageTypeContact}
}

// VerboseName returns the editor facing name of the page type.
func (t PageType) VerboseName() string {
	switch t {
	case PageTypeHome:
		return "Strona główna"
	case PageTypeService:
		return "Strona usługi"
	case PageTypeContact:
		return "Strona kontaktowa"
	default:
		return string(t)
	}
}

// PageStatus is the publication state of a page.
type PageStatus string

// Page status constants.
const (
	PageStatusDraft     PageStatus = "draft"
	PageStatusScheduled PageStatus = "scheduled"
	PageStatusLive      PageStatus = "live"
	PageStatusDeleted   PageStatus = "deleted"
)

// Page is a decoded page: its fixed fields and streams have been validated
// against the schema of its type.
type Page struct {
	ID          uuid.UUID                `json:"id"`
	ParentID    *uuid.UUID               `json:"parent_id,omitempty"`
	Type        PageType                 `json:"type"`
	Title       string                   `json:"title"`
	Slug        string                   `json:"slug"`
	Status      PageStatus               `json:"status"`
	Fields      map[string]blocks.Value  `json:"fields"`
	Streams     map[string]blocks.Stream `json:"streams"`
	RevisionID  string                   `json:"revision_id,omitempty"`
	GoLiveAt    *time.Time               `json:"go_live_at,omitempty"`
	PublishedAt *time.Time               `json:"published_at,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
	DeletedAt   *time.Time               `json:"deleted_at,omitempty"`
}

// Field returns a fixed field value, or an empty scalar when it is absent.
func (p *Page) Field(name string) blocks.Value {
	if v, ok := p.Fields[name]; ok {
		return v
	}
	return blocks.Scalar(nil)
}

// Stream returns a stream field, empty when absent.
func (p *Page) Stream(name string) blocks.Stream {
	return p.Streams[name]
}

// IsLive reports whether the page is publicly visible.
func (p *Page) IsLive() bool {
	return p.Status == PageStatusLive
}

// PageRecord is the persisted form of a page. Content maps every field name to
// its portable tree: a JSON value for fixed fields and a block array for
// streams.
type PageRecord struct {
	ID          uuid.UUID      `json:"id"`
	ParentID    *uuid.UUID     `json:"parent_id,omitempty"`
	Type        PageType       `json:"type"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Status      PageStatus     `json:"status"`
	Content     map[string]any `json:"content"`
	RevisionID  string         `json:"revision_id,omitempty"`
	GoLiveAt    *time.Time     `json:"go_live_at,omitempty"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty"`
}

// Revision is an immutable snapshot written on every save and publish.
// IDs are ULIDs so revisions sort by creation time.
type Revision struct {
	ID        string         `json:"id"`
	PageID    uuid.UUID      `json:"page_id"`
	Status    PageStatus     `json:"status"`
	Title     string         `json:"title"`
	Slug      string         `json:"slug"`
	Content   map[string]any `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

// Image is an entry of the image library. Image blocks and image fields
// store the image ID.
type Image struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	FileName       string    `json:"file_name"`
	MimeType       string    `json:"mime_type"`
	Size           int64     `json:"size"`
	ObjectKey      string    `json:"object_key"`
	StorageBackend string    `json:"storage_backend"`
	CreatedAt      time.Time `json:"created_at"`
}

// Draft is author input for a page. Fields holds portable trees keyed by
// field name: JSON values for fixed fields, block arrays for streams.
type Draft struct {
	Title  string         `json:"title"`
	Slug   string         `json:"slug"`
	Fields map[string]any `json:"fields"`
}
