package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/ozeweb/oze-website/pkg/pages"
	"github.com/ozeweb/oze-website/pkg/pages/render"
)

const defaultMaxUploadSize = 20 << 20

// Handler serves the page and image API.
type Handler struct {
	service       pages.Service
	renderer      *render.Renderer
	auth          *jwtauth.JWTAuth
	maxUploadSize int64
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithAuth requires a valid bearer token signed for ja on every write route.
// Without a token, page reads are limited to live pages.
func WithAuth(ja *jwtauth.JWTAuth) HandlerOption {
	return func(h *Handler) {
		h.auth = ja
	}
}

// WithMaxUploadSize limits image uploads to n bytes.
func WithMaxUploadSize(n int64) HandlerOption {
	return func(h *Handler) {
		h.maxUploadSize = n
	}
}

// NewHandler creates the API handler.
func NewHandler(service pages.Service, renderer *render.Renderer, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:       service,
		renderer:      renderer,
		maxUploadSize: defaultMaxUploadSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the API router, meant to be mounted under /api/v1.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/schemas", h.ListSchemas)
	r.Get("/schemas/{type}", h.GetSchema)
	r.Get("/schemas/{type}/defaults", h.GetDefaults)
	r.Post("/schemas/{type}/validate", h.ValidateDraft)
	r.Get("/services/live", h.ListLiveServices)

	r.Get("/images/{id}", h.GetImage)
	// image files never change under an id
	r.With(CacheMiddleware(24*time.Hour)).Get("/images/{id}/download", h.DownloadImage)

	// Page reads. Anonymous callers only see live pages.
	r.Group(func(r chi.Router) {
		if h.auth != nil {
			r.Use(jwtauth.Verifier(h.auth))
		}

		r.Get("/pages", h.ListPages)
		r.Get("/pages/by-slug/{slug}", h.GetPageBySlug)
		r.Get("/pages/{id}", h.GetPage)
		r.Get("/pages/{id}/render", h.RenderPage)
	})

	// Editor routes
	r.Group(func(r chi.Router) {
		if h.auth != nil {
			r.Use(jwtauth.Verifier(h.auth))
			r.Use(jwtauth.Authenticator)
		}

		r.Get("/pages/{id}/revisions", h.ListRevisions)
		r.Post("/pages", h.CreatePage)
		r.Put("/pages/{id}", h.UpdatePage)
		r.Delete("/pages/{id}", h.DeletePage)
		r.Post("/pages/{id}/publish", h.PublishPage)
		r.Post("/pages/{id}/unpublish", h.UnpublishPage)
		r.Post("/pages/{id}/schedule", h.SchedulePublish)
		r.Post("/pages/publish-scheduled", h.PublishScheduled)

		r.Post("/images", h.UploadImage)
	})

	return r
}

// isEditor reports whether the request carries a valid token. Every caller
// is an editor when auth is not configured.
func (h *Handler) isEditor(r *http.Request) bool {
	if h.auth == nil {
		return true
	}
	token, _, err := jwtauth.FromContext(r.Context())
	return err == nil && token != nil
}

// visible hides pages that are not live from anonymous callers.
func (h *Handler) visible(r *http.Request, page *pages.Page) bool {
	return page.Status == pages.PageStatusLive || h.isEditor(r)
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
