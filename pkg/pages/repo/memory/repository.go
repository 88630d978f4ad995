package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ozeweb/oze-website/pkg/pages"
)

// Repository implements pages.Repository using in-memory storage
type Repository struct {
	mu        sync.RWMutex
	pages     map[uuid.UUID]*pages.PageRecord
	revisions map[uuid.UUID][]*pages.Revision // page_id -> revisions, oldest first
	images    map[uuid.UUID]*pages.Image
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		pages:     make(map[uuid.UUID]*pages.PageRecord),
		revisions: make(map[uuid.UUID][]*pages.Revision),
		images:    make(map[uuid.UUID]*pages.Image),
	}
}

var _ pages.Repository = (*Repository)(nil)

// Page operations

func (r *Repository) CreatePage(ctx context.Context, page *pages.PageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slugTaken(page) {
		return pages.ErrSlugConflict
	}
	r.pages[page.ID] = copyRecord(page)
	return nil
}

func (r *Repository) GetPage(ctx context.Context, id uuid.UUID) (*pages.PageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	page, exists := r.pages[id]
	if !exists || page.DeletedAt != nil {
		return nil, pages.ErrPageNotFound
	}
	return copyRecord(page), nil
}

func (r *Repository) GetPageBySlug(ctx context.Context, parentID *uuid.UUID, slug string) (*pages.PageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, page := range r.pages {
		if page.DeletedAt == nil && page.Slug == slug && sameParent(page.ParentID, parentID) {
			return copyRecord(page), nil
		}
	}
	return nil, pages.ErrPageNotFound
}

func (r *Repository) UpdatePage(ctx context.Context, page *pages.PageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.pages[page.ID]; !exists || existing.DeletedAt != nil {
		return pages.ErrPageNotFound
	}
	if r.slugTaken(page) {
		return pages.ErrSlugConflict
	}
	r.pages[page.ID] = copyRecord(page)
	return nil
}

func (r *Repository) DeletePage(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	page, exists := r.pages[id]
	if !exists || page.DeletedAt != nil {
		return pages.ErrPageNotFound
	}

	now := time.Now().UTC()
	page.Status = pages.PageStatusDeleted
	page.DeletedAt = &now
	page.UpdatedAt = now
	return nil
}

func (r *Repository) ListPages(ctx context.Context, filter pages.PageFilter) ([]*pages.PageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*pages.PageRecord
	for _, page := range r.pages {
		if matches(page, filter) {
			result = append(result, copyRecord(page))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Revision operations

func (r *Repository) CreateRevision(ctx context.Context, rev *pages.Revision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pages[rev.PageID]; !exists {
		return pages.ErrPageNotFound
	}
	revCopy := *rev
	revCopy.Content = cloneContent(rev.Content)
	r.revisions[rev.PageID] = append(r.revisions[rev.PageID], &revCopy)
	return nil
}

// ListRevisions returns the revisions of a page, newest first.
func (r *Repository) ListRevisions(ctx context.Context, pageID uuid.UUID) ([]*pages.Revision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	revs := r.revisions[pageID]
	result := make([]*pages.Revision, 0, len(revs))
	for i := len(revs) - 1; i >= 0; i-- {
		revCopy := *revs[i]
		revCopy.Content = cloneContent(revs[i].Content)
		result = append(result, &revCopy)
	}
	return result, nil
}

// Image operations

func (r *Repository) CreateImage(ctx context.Context, img *pages.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	imgCopy := *img
	r.images[img.ID] = &imgCopy
	return nil
}

func (r *Repository) GetImage(ctx context.Context, id uuid.UUID) (*pages.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	img, exists := r.images[id]
	if !exists {
		return nil, pages.ErrImageNotFound
	}
	imgCopy := *img
	return &imgCopy, nil
}

// slugTaken reports whether a live sibling of page already uses its slug.
// Callers hold the lock.
func (r *Repository) slugTaken(page *pages.PageRecord) bool {
	for _, other := range r.pages {
		if other.ID != page.ID && other.DeletedAt == nil && other.Slug == page.Slug && sameParent(other.ParentID, page.ParentID) {
			return true
		}
	}
	return false
}

func matches(page *pages.PageRecord, f pages.PageFilter) bool {
	if page.DeletedAt != nil && !f.IncludeDeleted {
		return false
	}
	if f.Type != "" && page.Type != f.Type {
		return false
	}
	if f.ParentID != nil && !sameParent(page.ParentID, f.ParentID) {
		return false
	}
	if f.Status != "" && page.Status != f.Status {
		return false
	}
	if f.DueBefore != nil && (page.GoLiveAt == nil || page.GoLiveAt.After(*f.DueBefore)) {
		return false
	}
	return true
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyRecord(page *pages.PageRecord) *pages.PageRecord {
	c := *page
	c.Content = cloneContent(page.Content)
	return &c
}

// cloneContent deep copies a portable tree so stored records cannot be
// changed through returned values.
func cloneContent(content map[string]any) map[string]any {
	if content == nil {
		return nil
	}
	data, err := json.Marshal(content)
	if err != nil {
		return content
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return content
	}
	return out
}
