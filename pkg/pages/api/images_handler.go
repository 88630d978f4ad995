package api

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"
	"github.com/ozeweb/oze-website/pkg/pages"
)

// ImageResponse is the response body for an image
type ImageResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	FileName       string    `json:"file_name"`
	MimeType       string    `json:"mime_type"`
	Size           int64     `json:"size"`
	StorageBackend string    `json:"storage_backend"`
	URL            string    `json:"url"`
	CreatedAt      time.Time `json:"created_at"`
}

// UploadImage adds a multipart "file" to the image library. Optional form
// values are "title" and "backend".
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			render.Status(r, http.StatusRequestEntityTooLarge)
			render.JSON(w, r, ErrorResponse{Code: "too_large", Message: "file exceeds " + strconv.FormatInt(h.maxUploadSize, 10) + " bytes"})
			return
		}
		badRequest(w, r, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, r, "file is required")
		return
	}
	defer file.Close()

	img, err := h.service.UploadImage(r.Context(), pages.UploadImageRequest{
		Title:    r.FormValue("title"),
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Reader:   file,
		Backend:  r.FormValue("backend"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("Image uploaded", "image_id", img.ID, "size", img.Size)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.imageResponse(r, img))
}

// GetImage returns the metadata and public URL of an image
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	img, err := h.service.GetImage(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, h.imageResponse(r, img))
}

// DownloadImage streams the image file
func (h *Handler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	rc, img, err := h.service.DownloadImage(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", img.MimeType)
	if img.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(img.Size, 10))
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": img.FileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("Image download interrupted", "image_id", id, "error", err)
	}
}

func (h *Handler) imageResponse(r *http.Request, img *pages.Image) ImageResponse {
	url, err := h.service.ImageURL(r.Context(), img.ID)
	if err != nil {
		slog.Warn("Failed to resolve image URL", "image_id", img.ID, "error", err)
	}
	return ImageResponse{
		ID:             img.ID.String(),
		Title:          img.Title,
		FileName:       img.FileName,
		MimeType:       img.MimeType,
		Size:           img.Size,
		StorageBackend: img.StorageBackend,
		URL:            url,
		CreatedAt:      img.CreatedAt,
	}
}
