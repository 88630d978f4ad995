package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/ozeweb/oze-website/pkg/pages"
)

// PageRequest is the request body for creating or replacing a page
type PageRequest struct {
	Type     string         `json:"type"`
	ParentID string         `json:"parent_id,omitempty"`
	Title    string         `json:"title"`
	Slug     string         `json:"slug"`
	Fields   map[string]any `json:"fields"`
}

// PageResponse is the response body for a page. Fields holds the portable
// content of every field, streams included.
type PageResponse struct {
	ID          string         `json:"id"`
	ParentID    string         `json:"parent_id,omitempty"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Status      string         `json:"status"`
	Fields      map[string]any `json:"fields"`
	RevisionID  string         `json:"revision_id,omitempty"`
	GoLiveAt    *time.Time     `json:"go_live_at,omitempty"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// RevisionResponse is the response body for a revision
type RevisionResponse struct {
	ID        string         `json:"id"`
	PageID    string         `json:"page_id"`
	Status    string         `json:"status"`
	Title     string         `json:"title"`
	Slug      string         `json:"slug"`
	Content   map[string]any `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

// ScheduleRequest is the request body for scheduling a page
type ScheduleRequest struct {
	GoLiveAt time.Time `json:"go_live_at"`
}

// RenderResponse is the JSON form of a rendered page
type RenderResponse struct {
	Format string `json:"format"`
	Body   string `json:"body"`
}

// CreatePage creates a draft page
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req PageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}

	parentID, ok := parseOptionalID(w, r, req.ParentID, "parent_id")
	if !ok {
		return
	}

	page, err := h.service.CreatePage(r.Context(), pages.CreatePageRequest{
		Type:     pages.PageType(req.Type),
		ParentID: parentID,
		Draft:    pages.Draft{Title: req.Title, Slug: req.Slug, Fields: req.Fields},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("Page created", "page_id", page.ID, "type", page.Type)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.pageResponse(page))
}

// GetPage retrieves a page by ID
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	page, err := h.service.GetPage(r.Context(), id)
	if err == nil && !h.visible(r, page) {
		err = pages.ErrPageNotFound
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, h.pageResponse(page))
}

// GetPageBySlug retrieves a page by slug, optionally below a parent page
func (h *Handler) GetPageBySlug(w http.ResponseWriter, r *http.Request) {
	parentID, ok := parseOptionalID(w, r, r.URL.Query().Get("parent_id"), "parent_id")
	if !ok {
		return
	}
	page, err := h.service.GetPageBySlug(r.Context(), parentID, chi.URLParam(r, "slug"))
	if err == nil && !h.visible(r, page) {
		err = pages.ErrPageNotFound
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, h.pageResponse(page))
}

// ListPages lists pages filtered by type, parent_id and status. Anonymous
// callers always get live pages.
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	parentID, ok := parseOptionalID(w, r, q.Get("parent_id"), "parent_id")
	if !ok {
		return
	}

	status := pages.PageStatus(q.Get("status"))
	if !h.isEditor(r) {
		status = pages.PageStatusLive
	}
	list, err := h.service.ListPages(r.Context(), pages.ListPagesRequest{
		Type:     pages.PageType(q.Get("type")),
		ParentID: parentID,
		Status:   status,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, h.pageResponses(list))
}

// ListLiveServices lists the live service pages in display order
func (h *Handler) ListLiveServices(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListLiveServices(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, h.pageResponses(list))
}

// UpdatePage replaces the content of a page
func (h *Handler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req PageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}

	page, err := h.service.UpdatePage(r.Context(), pages.UpdatePageRequest{
		ID:    id,
		Draft: pages.Draft{Title: req.Title, Slug: req.Slug, Fields: req.Fields},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("Page updated", "page_id", page.ID)
	render.JSON(w, r, h.pageResponse(page))
}

// DeletePage soft deletes a page
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeletePage(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("Page deleted", "page_id", id)
	render.NoContent(w, r)
}

// PublishPage makes a page live
func (h *Handler) PublishPage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	page, err := h.service.PublishPage(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, h.pageResponse(page))
}

// UnpublishPage returns a live or scheduled page to draft
func (h *Handler) UnpublishPage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	page, err := h.service.UnpublishPage(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, h.pageResponse(page))
}

// SchedulePublish schedules a page to go live
func (h *Handler) SchedulePublish(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}
	if req.GoLiveAt.IsZero() {
		badRequest(w, r, "go_live_at is required")
		return
	}

	page, err := h.service.SchedulePublish(r.Context(), pages.SchedulePublishRequest{ID: id, GoLiveAt: req.GoLiveAt})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, h.pageResponse(page))
}

// PublishScheduled publishes every scheduled page that is due
func (h *Handler) PublishScheduled(w http.ResponseWriter, r *http.Request) {
	published, err := h.service.PublishScheduled(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, h.pageResponses(published))
}

// ListRevisions lists the revisions of a page, newest first
func (h *Handler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	revs, err := h.service.ListRevisions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]RevisionResponse, 0, len(revs))
	for _, rev := range revs {
		resp = append(resp, RevisionResponse{
			ID:        rev.ID,
			PageID:    rev.PageID.String(),
			Status:    string(rev.Status),
			Title:     rev.Title,
			Slug:      rev.Slug,
			Content:   rev.Content,
			CreatedAt: rev.CreatedAt,
		})
	}
	render.JSON(w, r, resp)
}

// RenderPage renders a page as HTML (default) or Markdown. Ask for
// format=json to get either wrapped in a JSON object.
func (h *Handler) RenderPage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if h.renderer == nil {
		writeError(w, r, errNoRenderer)
		return
	}
	page, err := h.service.GetPage(r.Context(), id)
	if err == nil && !h.visible(r, page) {
		err = pages.ErrPageNotFound
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "html":
		out, err := h.renderer.RenderPage(r.Context(), page)
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.HTML(w, r, string(out))
	case "markdown", "md":
		md, err := h.renderer.RenderMarkdown(r.Context(), page)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(md))
	case "json":
		out, err := h.renderer.RenderPage(r.Context(), page)
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, RenderResponse{Format: "html", Body: string(out)})
	default:
		badRequest(w, r, "unsupported format: "+format)
	}
}

func (h *Handler) pageResponse(p *pages.Page) PageResponse {
	resp := PageResponse{
		ID:          p.ID.String(),
		Type:        string(p.Type),
		Title:       p.Title,
		Slug:        p.Slug,
		Status:      string(p.Status),
		RevisionID:  p.RevisionID,
		GoLiveAt:    p.GoLiveAt,
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.ParentID != nil {
		resp.ParentID = p.ParentID.String()
	}
	if schema, err := h.service.Schemas().Get(p.Type); err == nil {
		resp.Fields = schema.Encode(p)
	}
	return resp
}

func (h *Handler) pageResponses(list []*pages.Page) []PageResponse {
	resp := make([]PageResponse, 0, len(list))
	for _, p := range list {
		resp = append(resp, h.pageResponse(p))
	}
	return resp
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, r, "invalid "+param+": "+raw)
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalID(w http.ResponseWriter, r *http.Request, raw, name string) (*uuid.UUID, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, r, "invalid "+name+": "+raw)
		return nil, false
	}
	return &id, true
}
