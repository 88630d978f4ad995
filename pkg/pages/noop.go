package pages

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) PageCreated(ctx context.Context, page *Page) error     { return nil }
func (n *NoopEventSink) PageUpdated(ctx context.Context, page *Page) error     { return nil }
func (n *NoopEventSink) PagePublished(ctx context.Context, page *Page) error   { return nil }
func (n *NoopEventSink) PageUnpublished(ctx context.Context, page *Page) error { return nil }
func (n *NoopEventSink) PageDeleted(ctx context.Context, pageID uuid.UUID) error {
	return nil
}
func (n *NoopEventSink) ImageUploaded(ctx context.Context, img *Image) error { return nil }

// LoggingEventSink writes every event to a structured logger.
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a logging event sink. A nil logger uses
// slog.Default().
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) PageCreated(ctx context.Context, page *Page) error {
	l.logger.InfoContext(ctx, "Page created", "page_id", page.ID, "type", page.Type, "slug", page.Slug)
	return nil
}

func (l *LoggingEventSink) PageUpdated(ctx context.Context, page *Page) error {
	l.logger.InfoContext(ctx, "Page updated", "page_id", page.ID, "revision", page.RevisionID)
	return nil
}

func (l *LoggingEventSink) PagePublished(ctx context.Context, page *Page) error {
	l.logger.InfoContext(ctx, "Page published", "page_id", page.ID, "slug", page.Slug)
	return nil
}

func (l *LoggingEventSink) PageUnpublished(ctx context.Context, page *Page) error {
	l.logger.InfoContext(ctx, "Page unpublished", "page_id", page.ID)
	return nil
}

func (l *LoggingEventSink) PageDeleted(ctx context.Context, pageID uuid.UUID) error {
	l.logger.InfoContext(ctx, "Page deleted", "page_id", pageID)
	return nil
}

func (l *LoggingEventSink) ImageUploaded(ctx context.Context, img *Image) error {
	l.logger.InfoContext(ctx, "Image uploaded", "image_id", img.ID, "file_name", img.FileName, "size", img.Size)
	return nil
}
