package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/ozeweb/oze-website/pkg/pages"
	"github.com/ozeweb/oze-website/pkg/pages/render"
	memoryrepo "github.com/ozeweb/oze-website/pkg/pages/repo/memory"
	memorystorage "github.com/ozeweb/oze-website/pkg/pages/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupHandlerTest creates a Handler backed by in-memory storage
func setupHandlerTest(t *testing.T, opts ...HandlerOption) (http.Handler, pages.Service) {
	t.Helper()
	service, err := pages.New(
		pages.WithRepository(memoryrepo.New()),
		pages.WithBlobStore("memory", memorystorage.New()),
	)
	require.NoError(t, err)

	renderer, err := render.New(service.Schemas(), render.WithImageResolver(service))
	require.NoError(t, err)

	return NewHandler(service, renderer, opts...).Routes(), service
}

func serviceRequest(title, slug string) PageRequest {
	return PageRequest{
		Type:  "service",
		Title: title,
		Slug:  slug,
		Fields: map[string]any{
			"icon":              "bolt",
			"short_description": "Opis usługi",
			"content": []any{
				map[string]any{"type": "heading", "value": "Zakres prac"},
				map[string]any{"type": "pricing", "value": map[string]any{
					"title": "Cennik",
					"items": []any{map[string]any{"name": "Przegląd", "price": "299 zł"}},
				}},
			},
		},
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHandler_Schemas(t *testing.T) {
	h, _ := setupHandlerTest(t)

	rr := doJSON(t, h, http.MethodGet, "/schemas", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	schemas := decode[[]SchemaResponse](t, rr)
	require.Len(t, schemas, 3)
	assert.Equal(t, "home", schemas[0].Type)
	assert.Equal(t, "service", schemas[1].Type)
	assert.Equal(t, "contact", schemas[2].Type)

	var content *FieldResponse
	for i := range schemas[1].Fields {
		if schemas[1].Fields[i].Name == "content" {
			content = &schemas[1].Fields[i]
		}
	}
	require.NotNil(t, content)
	assert.True(t, content.Stream)
	var names []string
	for _, b := range content.Blocks {
		names = append(names, b.Name)
	}
	assert.Contains(t, names, "pricing")

	rr = doJSON(t, h, http.MethodGet, "/schemas/service", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/schemas/blog", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Defaults(t *testing.T) {
	h, _ := setupHandlerTest(t)

	rr := doJSON(t, h, http.MethodGet, "/schemas/home/defaults", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	defaults := decode[map[string]any](t, rr)
	assert.Equal(t, []any{}, defaults["why_us_items"])
}

func TestHandler_ValidateDraft(t *testing.T) {
	h, _ := setupHandlerTest(t)

	req := serviceRequest("Przegląd", "przeglad")
	draft := pages.Draft{Title: req.Title, Slug: req.Slug, Fields: req.Fields}
	rr := doJSON(t, h, http.MethodPost, "/schemas/service/validate", draft)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, decode[ValidateResponse](t, rr).Valid)

	draft.Fields["content"] = []any{map[string]any{"type": "pricing", "value": map[string]any{
		"title": "Cennik",
		"items": []any{map[string]any{"price": "299 zł"}},
	}}}
	rr = doJSON(t, h, http.MethodPost, "/schemas/service/validate", draft)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	resp := decode[ErrorResponse](t, rr)
	assert.Equal(t, "validation_error", resp.Code)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "content[0].items[0].name", resp.Errors[0].Path)
	assert.Equal(t, "missing_field", resp.Errors[0].Code)

	rr = doJSON(t, h, http.MethodPost, "/schemas/service/validate", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_PageLifecycle(t *testing.T) {
	h, _ := setupHandlerTest(t)

	rr := doJSON(t, h, http.MethodPost, "/pages", serviceRequest("Przegląd PV", "przeglad-pv"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[PageResponse](t, rr)
	assert.Equal(t, "draft", created.Status)
	assert.Equal(t, "bolt", created.Fields["icon"])
	assert.NotEmpty(t, created.RevisionID)

	rr = doJSON(t, h, http.MethodGet, "/pages/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, created.ID, decode[PageResponse](t, rr).ID)

	rr = doJSON(t, h, http.MethodGet, "/pages/by-slug/przeglad-pv", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, created.ID, decode[PageResponse](t, rr).ID)

	rr = doJSON(t, h, http.MethodPost, "/pages", serviceRequest("Inny", "przeglad-pv"))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "slug_conflict", decode[ErrorResponse](t, rr).Code)

	update := serviceRequest("Przegląd instalacji PV", "przeglad-pv")
	rr = doJSON(t, h, http.MethodPut, "/pages/"+created.ID, update)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Przegląd instalacji PV", decode[PageResponse](t, rr).Title)

	rr = doJSON(t, h, http.MethodGet, "/services/live", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]PageResponse](t, rr))

	rr = doJSON(t, h, http.MethodPost, "/pages/"+created.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	published := decode[PageResponse](t, rr)
	assert.Equal(t, "live", published.Status)
	assert.NotNil(t, published.PublishedAt)

	rr = doJSON(t, h, http.MethodPost, "/pages/"+created.ID+"/publish", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/services/live", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]PageResponse](t, rr), 1)

	rr = doJSON(t, h, http.MethodGet, "/pages?type=service&status=live", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]PageResponse](t, rr), 1)

	rr = doJSON(t, h, http.MethodGet, "/pages/"+created.ID+"/revisions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	revs := decode[[]RevisionResponse](t, rr)
	require.Len(t, revs, 3)
	assert.Equal(t, "live", revs[0].Status)

	rr = doJSON(t, h, http.MethodPost, "/pages/"+created.ID+"/unpublish", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "draft", decode[PageResponse](t, rr).Status)

	rr = doJSON(t, h, http.MethodDelete, "/pages/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/pages/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, rr).Code)
}

func TestHandler_CreatePage_Invalid(t *testing.T) {
	h, _ := setupHandlerTest(t)

	req := serviceRequest("Przegląd", "przeglad")
	delete(req.Fields, "short_description")
	rr := doJSON(t, h, http.MethodPost, "/pages", req)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	resp := decode[ErrorResponse](t, rr)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "short_description", resp.Errors[0].Path)

	req = serviceRequest("Przegląd", "przeglad")
	req.ParentID = "not-a-uuid"
	rr = doJSON(t, h, http.MethodPost, "/pages", req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/pages/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Schedule(t *testing.T) {
	h, _ := setupHandlerTest(t)

	rr := doJSON(t, h, http.MethodPost, "/pages", serviceRequest("Termowizja", "termowizja"))
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode[PageResponse](t, rr)

	rr = doJSON(t, h, http.MethodPost, "/pages/"+created.ID+"/schedule", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	future := time.Now().Add(time.Hour).UTC()
	rr = doJSON(t, h, http.MethodPost, "/pages/"+created.ID+"/schedule", ScheduleRequest{GoLiveAt: future})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	scheduled := decode[PageResponse](t, rr)
	assert.Equal(t, "scheduled", scheduled.Status)
	require.NotNil(t, scheduled.GoLiveAt)

	rr = doJSON(t, h, http.MethodPost, "/pages/publish-scheduled", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]PageResponse](t, rr))

	// A go-live time in the past publishes right away.
	past := time.Now().Add(-time.Minute).UTC()
	rr = doJSON(t, h, http.MethodPost, "/pages/"+created.ID+"/schedule", ScheduleRequest{GoLiveAt: past})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "live", decode[PageResponse](t, rr).Status)
}

func TestHandler_RenderPage(t *testing.T) {
	h, _ := setupHandlerTest(t)

	rr := doJSON(t, h, http.MethodPost, "/pages", serviceRequest("Przegląd PV", "przeglad-pv"))
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decode[PageResponse](t, rr).ID

	rr = doJSON(t, h, http.MethodGet, "/pages/"+id+"/render", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "<h1>Przegląd PV</h1>")
	assert.Contains(t, rr.Body.String(), "<strong>Przegląd</strong>: 299 zł")

	rr = doJSON(t, h, http.MethodGet, "/pages/"+id+"/render?format=markdown", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rr.Body.String(), "# Przegląd PV")

	rr = doJSON(t, h, http.MethodGet, "/pages/"+id+"/render?format=json", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, decode[RenderResponse](t, rr).Body, "<h1>Przegląd PV</h1>")

	rr = doJSON(t, h, http.MethodGet, "/pages/"+id+"/render?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func uploadRequest(t *testing.T, fileName string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Dach"))
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandler_Images(t *testing.T) {
	h, _ := setupHandlerTest(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, uploadRequest(t, "dach.png", pngHeader))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	img := decode[ImageResponse](t, rr)
	assert.Equal(t, "Dach", img.Title)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, "/api/v1/images/"+img.ID+"/download", img.URL)

	rr = doJSON(t, h, http.MethodGet, "/images/"+img.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, img.ID, decode[ImageResponse](t, rr).ID)

	rr = doJSON(t, h, http.MethodGet, "/images/"+img.ID+"/download", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, rr.Body.Bytes())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, uploadRequest(t, "notes.txt", []byte("hello")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/images/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_UploadTooLarge(t *testing.T) {
	h, _ := setupHandlerTest(t, WithMaxUploadSize(64))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, uploadRequest(t, "dach.png", append(pngHeader, bytes.Repeat([]byte{0}, 1024)...)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestHandler_Auth(t *testing.T) {
	ja := jwtauth.New("HS256", []byte("test-secret"), nil)
	h, _ := setupHandlerTest(t, WithAuth(ja))

	rr := doJSON(t, h, http.MethodPost, "/pages", serviceRequest("Przegląd", "przeglad"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	other := jwtauth.New("HS256", []byte("other-secret"), nil)
	_, forged, err := other.Encode(map[string]interface{}{"sub": "editor"})
	require.NoError(t, err)
	rr = doJSON(t, h, http.MethodPost, "/pages", serviceRequest("Przegląd", "przeglad"), "Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	_, token, err := ja.Encode(map[string]interface{}{"sub": "editor"})
	require.NoError(t, err)
	rr = doJSON(t, h, http.MethodPost, "/pages", serviceRequest("Przegląd", "przeglad"), "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, h, http.MethodGet, "/pages", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "przeglad"))
}

func TestHandler_AnonymousReadsSeeOnlyLivePages(t *testing.T) {
	ja := jwtauth.New("HS256", []byte("test-secret"), nil)
	h, _ := setupHandlerTest(t, WithAuth(ja))
	_, token, err := ja.Encode(map[string]interface{}{"sub": "editor"})
	require.NoError(t, err)
	bearer := "Bearer " + token

	rr := doJSON(t, h, http.MethodPost, "/pages", serviceRequest("Szkic", "szkic"), "Authorization", bearer)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	draft := decode[PageResponse](t, rr)

	rr = doJSON(t, h, http.MethodPost, "/pages", serviceRequest("Przegląd", "przeglad"), "Authorization", bearer)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	live := decode[PageResponse](t, rr)
	rr = doJSON(t, h, http.MethodPost, "/pages/"+live.ID+"/publish", nil, "Authorization", bearer)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	hidden := []string{
		"/pages/" + draft.ID,
		"/pages/by-slug/szkic",
		"/pages/" + draft.ID + "/render",
	}
	for _, path := range hidden {
		t.Run(path, func(t *testing.T) {
			rr := doJSON(t, h, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusNotFound, rr.Code)
			assert.NotContains(t, rr.Body.String(), "Szkic")

			rr = doJSON(t, h, http.MethodGet, path, nil, "Authorization", bearer)
			assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		})
	}

	rr = doJSON(t, h, http.MethodGet, "/pages/"+live.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/pages?status=draft", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]PageResponse](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, live.ID, list[0].ID)

	rr = doJSON(t, h, http.MethodGet, "/pages?status=draft", nil, "Authorization", bearer)
	require.Equal(t, http.StatusOK, rr.Code)
	list = decode[[]PageResponse](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, draft.ID, list[0].ID)

	rr = doJSON(t, h, http.MethodGet, "/pages/"+live.ID+"/revisions", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = doJSON(t, h, http.MethodGet, "/pages/"+live.ID+"/revisions", nil, "Authorization", bearer)
	assert.Equal(t, http.StatusOK, rr.Code)
}
