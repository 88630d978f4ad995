package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ozeweb/oze-website/pkg/pages"
)

// Lister is the part of pages.Repository the scanner reads from.
type Lister interface {
	ListPages(ctx context.Context, filter pages.PageFilter) ([]*pages.PageRecord, error)
}

// Scanner queries stored pages and processes them with the provided processor.
type Scanner struct {
	repo   Lister
	logger *slog.Logger
}

// New returns a scanner over repo that logs to slog.Default.
func New(repo Lister) *Scanner {
	return &Scanner{repo: repo, logger: slog.Default()}
}

// WithLogger returns a copy of the scanner logging to logger.
func (s *Scanner) WithLogger(logger *slog.Logger) *Scanner {
	c := *s
	c.logger = logger
	return &c
}

// ScanOptions selects the pages to visit and what to do with each.
type ScanOptions struct {
	// Filter specifies which pages to process
	Filter pages.PageFilter

	// Processor runs on every matching page; required unless DryRun is set
	Processor PageProcessor

	// BatchSize controls how often progress is reported (default: 100)
	BatchSize int

	// DryRun if true, doesn't process pages, just reports what would be processed
	DryRun bool

	// OnProgress, when set, is called every BatchSize pages and at the end
	OnProgress func(processed, total int64)
}

// ScanResult counts what a scan visited.
type ScanResult struct {
	TotalFound     int64
	TotalProcessed int64
	TotalFailed    int64

	// FailedIDs contains the IDs of pages that failed processing
	FailedIDs []string
}

// Scan lists pages matching the filter and processes each one. A page that
// fails processing is recorded and the scan continues; cancelling ctx stops
// the scan between pages.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	result := &ScanResult{}

	if !opts.DryRun && opts.Processor == nil {
		return result, errors.New("scan: processor is required unless DryRun is set")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}

	recs, err := s.repo.ListPages(ctx, opts.Filter)
	if err != nil {
		return result, fmt.Errorf("failed to list pages: %w", err)
	}
	result.TotalFound = int64(len(recs))

	for start := 0; start < len(recs); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(recs))
		for _, rec := range recs[start:end] {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			if opts.DryRun {
				s.logger.Info("Would process page", "page_id", rec.ID, "type", rec.Type, "slug", rec.Slug, "status", rec.Status)
				result.TotalProcessed++
				continue
			}

			if err := opts.Processor.Process(ctx, rec); err != nil {
				result.TotalFailed++
				result.FailedIDs = append(result.FailedIDs, rec.ID.String())
				s.logger.Warn("Failed to process page", "page_id", rec.ID, "type", rec.Type, "error", err)
				continue
			}
			result.TotalProcessed++
		}

		if opts.OnProgress != nil {
			opts.OnProgress(result.TotalProcessed+result.TotalFailed, result.TotalFound)
		}
	}

	return result, nil
}

// ForEach processes each page matching filter with fn.
func (s *Scanner) ForEach(ctx context.Context, filter pages.PageFilter, fn func(context.Context, *pages.PageRecord) error) (*ScanResult, error) {
	return s.Scan(ctx, ScanOptions{
		Filter:    filter,
		Processor: ProcessorFunc(fn),
	})
}

// ProcessorFunc adapts a function to the PageProcessor interface.
type ProcessorFunc func(context.Context, *pages.PageRecord) error

func (f ProcessorFunc) Process(ctx context.Context, rec *pages.PageRecord) error {
	return f(ctx, rec)
}
