package pages

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ozeweb/oze-website/pkg/blocks"
)

// Error types
var (
	// ErrPageNotFound indicates a page was not found
	ErrPageNotFound = errors.New("page not found")

	// ErrImageNotFound indicates an image was not found
	ErrImageNotFound = errors.New("image not found")

	// ErrObjectNotFound indicates a blob store has no object under the key
	ErrObjectNotFound = errors.New("object not found")

	// ErrStorageBackendNotFound indicates a storage backend was not found
	ErrStorageBackendNotFound = errors.New("storage backend not found")

	// ErrInvalidPageStatus indicates a page status outside the known set
	ErrInvalidPageStatus = errors.New("invalid page status")

	// ErrInvalidTransition indicates a status change the page's state does not allow
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnknownPageType indicates a page type without a schema
	ErrUnknownPageType = errors.New("unknown page type")

	// ErrSlugConflict indicates a sibling page already uses the slug
	ErrSlugConflict = errors.New("slug already in use")

	// ErrUploadFailed indicates an image upload failed
	ErrUploadFailed = errors.New("upload failed")

	// ErrDownloadFailed indicates an image download failed
	ErrDownloadFailed = errors.New("download failed")
)

// PageError represents an error related to page operations
type PageError struct {
	PageID uuid.UUID
	Op     string
	Err    error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page operation %s failed for page %s: %v", e.Op, e.PageID, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationErrors collects the first error of every invalid top-level field
// of a page, in field declaration order.
type ValidationErrors []error

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return "no validation errors"
	case 1:
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(e), strings.Join(msgs, "; "))
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e ValidationErrors) Unwrap() []error {
	return e
}

// FieldError is the transport shape of one validation error.
type FieldError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FieldErrors flattens err into transport shaped errors. It returns nil when
// err carries no validation errors.
func FieldErrors(err error) []FieldError {
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		if ve, ok := blocks.AsValidationError(err); ok {
			return []FieldError{toFieldError(ve)}
		}
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		if ve, ok := blocks.AsValidationError(e); ok {
			out = append(out, toFieldError(ve))
			continue
		}
		out = append(out, FieldError{Code: "invalid", Message: e.Error()})
	}
	return out
}

func toFieldError(ve blocks.ValidationError) FieldError {
	return FieldError{Path: ve.FieldPath(), Code: ve.Code(), Message: ve.Error()}
}
