package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/ozeweb/oze-website/pkg/blocks"
	"github.com/ozeweb/oze-website/pkg/pages"
)

var errNoRenderer = errors.New("page rendering is not configured")

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Errors  []pages.FieldError `json:"errors,omitempty"`
}

// writeError maps service errors to HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	resp := ErrorResponse{Code: code, Message: err.Error()}

	if status == http.StatusUnprocessableEntity {
		resp.Message = "validation failed"
		resp.Errors = pages.FieldErrors(err)
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		resp.Message = "An internal server error occurred"
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}

func classify(err error) (int, string) {
	var verrs pages.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusUnprocessableEntity, "validation_error"
	}
	if _, ok := blocks.AsValidationError(err); ok {
		return http.StatusUnprocessableEntity, "validation_error"
	}

	switch {
	case errors.Is(err, pages.ErrPageNotFound), errors.Is(err, pages.ErrImageNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, pages.ErrSlugConflict):
		return http.StatusConflict, "slug_conflict"
	case errors.Is(err, pages.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, pages.ErrUnknownPageType), errors.Is(err, pages.ErrInvalidPageStatus),
		errors.Is(err, pages.ErrNotAnImage), errors.Is(err, pages.ErrStorageBackendNotFound):
		return http.StatusBadRequest, "bad_request"
	}
	return http.StatusInternalServerError, "internal_error"
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Code: "bad_request", Message: message})
}
