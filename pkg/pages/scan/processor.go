package scan

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/ozeweb/oze-website/pkg/pages"
)

// PageProcessor processes individual stored pages.
//
// Example implementations:
//   - Revalidator (finds pages the current schemas no longer accept)
//   - Exporter (writes page content to fixtures)
//   - Reporter (counts block usage across the site)
type PageProcessor interface {
	// Process is called for each page found during a scan.
	// Return an error to mark the page as failed; the scan continues.
	Process(ctx context.Context, rec *pages.PageRecord) error
}

// Finding describes a stored page that fails validation.
type Finding struct {
	PageID uuid.UUID
	Type   pages.PageType
	Slug   string
	Status pages.PageStatus
	Errors []pages.FieldError
	Err    error
}

// RevalidateProcessor decodes every page with the current schemas. Pages
// that no longer decode are reported as failed and collected in Findings.
type RevalidateProcessor struct {
	schemas pages.SchemaSet

	mu       sync.Mutex
	findings []Finding
}

// NewRevalidateProcessor creates a processor checking pages against schemas.
func NewRevalidateProcessor(schemas pages.SchemaSet) *RevalidateProcessor {
	return &RevalidateProcessor{schemas: schemas}
}

func (p *RevalidateProcessor) Process(ctx context.Context, rec *pages.PageRecord) error {
	schema, err := p.schemas.Get(rec.Type)
	if err == nil {
		_, err = schema.Load(rec)
	}
	if err == nil {
		return nil
	}

	p.mu.Lock()
	p.findings = append(p.findings, Finding{
		PageID: rec.ID,
		Type:   rec.Type,
		Slug:   rec.Slug,
		Status: rec.Status,
		Errors: pages.FieldErrors(err),
		Err:    err,
	})
	p.mu.Unlock()
	return err
}

// Findings returns the invalid pages seen so far.
func (p *RevalidateProcessor) Findings() []Finding {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Finding(nil), p.findings...)
}
